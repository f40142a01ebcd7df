// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/slothbot-dev/slothbot/internal/store"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-records",
		Method:      http.MethodGet,
		Path:        "/api/v1/records",
		Summary:     "List records in ingestion order",
		Tags:        []string{"records"},
	}, s.handleListRecords)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{id}",
		Summary:     "Get record details",
		Tags:        []string{"records"},
	}, s.handleGetRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "bot-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Record counts per status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

type listRecordsInput struct {
	Status   string `query:"status" doc:"Filter by status (pending, classified, done)"`
	Category string `query:"category" doc:"Filter by category"`
	Limit    int    `query:"limit" minimum:"0" maximum:"1000" doc:"Maximum records to return (default 100)"`
}
type listRecordsOutput struct {
	Body struct {
		Records []RecordView `json:"records"`
	}
}

type getRecordInput struct {
	ID string `path:"id"`
}
type getRecordOutput struct {
	Body RecordView
}

// StatusBody is the JSON body of the status endpoint.
type StatusBody struct {
	Status  string         `json:"status" example:"ok" doc:"Bot status"`
	Version string         `json:"version" doc:"Server version"`
	Records map[string]int `json:"records" doc:"Record counts keyed by status"`
	Total   int            `json:"total" doc:"Total records"`
}

type statusOutput struct {
	Body StatusBody
}

// --- Handlers ---

func (s *Server) handleListRecords(ctx context.Context, input *listRecordsInput) (*listRecordsOutput, error) {
	if input.Status != "" && !store.Status(input.Status).Valid() {
		return nil, huma.Error400BadRequest(fmt.Sprintf("unknown status %q", input.Status))
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	records, err := s.services.Records().List(ctx, RecordQuery{
		Status:   input.Status,
		Category: input.Category,
		Limit:    limit,
	})
	if err != nil {
		return nil, toHumaError("listing records", err)
	}
	out := &listRecordsOutput{}
	out.Body.Records = records
	return out, nil
}

func (s *Server) handleGetRecord(ctx context.Context, input *getRecordInput) (*getRecordOutput, error) {
	rec, err := s.services.Records().Get(ctx, input.ID)
	if err != nil {
		if IsNotFound(err) {
			return nil, huma.Error404NotFound(fmt.Sprintf("record %q not found", input.ID))
		}
		return nil, toHumaError("loading record", err)
	}
	return &getRecordOutput{Body: *rec}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	counts, err := s.services.Records().Counts(ctx)
	if err != nil {
		return nil, toHumaError("counting records", err)
	}
	out := &statusOutput{}
	out.Body.Status = "ok"
	out.Body.Version = Version
	out.Body.Records = counts
	for _, n := range counts {
		out.Body.Total += n
	}
	return out, nil
}

func toHumaError(msg string, err error) error {
	switch slotherr.HTTPStatus(err) {
	case http.StatusNotFound:
		return huma.Error404NotFound(msg)
	case http.StatusBadRequest:
		return huma.Error400BadRequest(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}
