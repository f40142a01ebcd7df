// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package command

// Operator-facing reply texts.
const (
	msgEcho              = "你說的是：%s 🦥"
	msgListHeader        = "已命名的 %s："
	msgListEmpty         = "還沒有已命名的項目 🦥"
	msgSearchNone        = "找不到「%s」相關的項目 🦥"
	msgSearchEntry       = "名稱：%s\n描述：%s\n圖片：%s"
	msgUnknownCategory   = "不認識的分類「%s」，可用的分類：%s"
	msgNothingToClassify = "目前沒有待分類的圖片 🦥"
	msgNothingToName     = "目前沒有需要命名的項目 🦥"
	msgNothingToDescribe = "目前沒有需要描述的項目 🦥"
	msgNothingToFinish   = "目前沒有可以完成的項目 🦥"
	msgClassified        = "已分類為 %s ✅"
	msgNamed             = "已命名為「%s」✅"
	msgDescribed         = "已加入描述：「%s」✅"
	msgDone              = "資料已完整，標記為完成 🎉"
	msgFinished          = "「%s」已標記為完成 🎉"
	msgUpdateImage       = "要更新圖片，請直接重新傳送新的圖片 📷"
)
