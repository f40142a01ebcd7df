// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/slothbot-dev/slothbot/internal/channel/line"
	"github.com/slothbot-dev/slothbot/internal/command"
	"github.com/slothbot-dev/slothbot/internal/config"
	"github.com/slothbot-dev/slothbot/internal/secrets"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// initHTTPClient is used for LINE token validation.
var initHTTPClient = &http.Client{Timeout: 10 * time.Second}

func validateLineToken(ctx context.Context, endpoint, token string) error {
	return line.ValidateTokenWithURL(ctx, initHTTPClient, token, strings.TrimRight(endpoint, "/")+"/v2/bot/info")
}

// validateTokenFunc is swapped in tests.
var validateTokenFunc = func(token string) error {
	return validateLineToken(context.Background(), line.DefaultEndpoint, token)
}

type initWizardStep int

const (
	stepToken         initWizardStep = iota // enter channel access token
	stepValidateToken                       // validating token (spinner)
	stepSecret                              // enter channel secret
	stepPublicURL                           // enter public base URL
	stepDone
	stepError
)

// initResult holds what the wizard collected.
type initResult struct {
	AccessToken   string
	ChannelSecret string
	PublicBaseURL string
}

type (
	tokenValidMsg   struct{}
	tokenInvalidMsg struct{ err error }
)
type configWrittenMsg struct{ path string }

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

type initModel struct {
	step           initWizardStep
	tokenInput     textinput.Model
	secretInput    textinput.Model
	urlInput       textinput.Model
	spinner        spinner.Model
	result         initResult
	validationErr  string
	configPath     string
	secretStore    secrets.Store
	errFinal       error
	forceOverwrite bool
}

func newInitModel(store secrets.Store) initModel {
	token := textinput.New()
	token.Placeholder = "paste channel access token here"
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'
	token.Focus()

	secret := textinput.New()
	secret.Placeholder = "paste channel secret here"
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '•'

	publicURL := textinput.New()
	publicURL.Placeholder = "https://bot.example.com"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return initModel{
		step:        stepToken,
		tokenInput:  token,
		secretInput: secret,
		urlInput:    publicURL,
		spinner:     sp,
		secretStore: store,
	}
}

func (m initModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tokenValidMsg:
		m.step = stepSecret
		m.validationErr = ""
		m.secretInput.Focus()
		return m, textinput.Blink

	case tokenInvalidMsg:
		m.step = stepToken
		m.validationErr = msg.err.Error()
		m.tokenInput.Focus()
		return m, nil

	case configWrittenMsg:
		m.step = stepDone
		m.configPath = msg.path
		return m, tea.Quit

	case error:
		m.step = stepError
		m.errFinal = msg
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.step {
	case stepToken:
		if msg.String() != "enter" {
			m.tokenInput, cmd = m.tokenInput.Update(msg)
			return m, cmd
		}
		token := strings.TrimSpace(m.tokenInput.Value())
		if token == "" {
			m.validationErr = "channel access token must not be empty"
			return m, nil
		}
		m.result.AccessToken = token
		m.validationErr = ""
		m.step = stepValidateToken
		return m, tea.Batch(m.spinner.Tick, validateTokenCmd(token))

	case stepSecret:
		if msg.String() != "enter" {
			m.secretInput, cmd = m.secretInput.Update(msg)
			return m, cmd
		}
		secret := strings.TrimSpace(m.secretInput.Value())
		if err := checkChannelSecret(secret); err != nil {
			m.validationErr = err.Error()
			return m, nil
		}
		m.result.ChannelSecret = secret
		m.validationErr = ""
		m.step = stepPublicURL
		m.urlInput.Focus()
		return m, textinput.Blink

	case stepPublicURL:
		if msg.String() != "enter" {
			m.urlInput, cmd = m.urlInput.Update(msg)
			return m, cmd
		}
		raw := strings.TrimSpace(m.urlInput.Value())
		if err := checkPublicURL(raw); err != nil {
			m.validationErr = err.Error()
			return m, nil
		}
		m.result.PublicBaseURL = strings.TrimRight(raw, "/")
		m.validationErr = ""
		return m, writeConfigCmd(m.result, m.secretStore, m.forceOverwrite)
	}
	return m, nil
}

func (m initModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Slothbot Setup  ") + "\n\n")

	input := func(prompt string, in textinput.Model, hint string) {
		b.WriteString(promptStyle.Render(prompt) + "\n\n")
		b.WriteString(in.View() + "\n")
		if m.validationErr != "" {
			b.WriteString("\n" + errorStyle.Render("  "+m.validationErr) + "\n")
		}
		b.WriteString("\n" + dimStyle.Render(hint))
	}

	switch m.step {
	case stepToken:
		input("Step 1/3: LINE channel access token", m.tokenInput, "enter to continue  ctrl+c to quit")
	case stepValidateToken:
		b.WriteString(m.spinner.View() + " Checking the token with LINE…\n")
	case stepSecret:
		input("Step 2/3: LINE channel secret", m.secretInput, "enter to continue  ctrl+c to quit")
	case stepPublicURL:
		input("Step 3/3: Public HTTPS URL of this bot (LINE fetches images from it)", m.urlInput,
			"enter to finish  ctrl+c to quit")
	case stepDone:
		b.WriteString(successStyle.Render("  Setup complete!  ") + "\n\n")
		if m.configPath != "" {
			b.WriteString(dimStyle.Render("Config written to: "+m.configPath) + "\n\n")
		}
		b.WriteString("Set the LINE webhook URL to " + promptStyle.Render(m.result.PublicBaseURL+"/callback") + "\n")
		b.WriteString("Run " + promptStyle.Render("slothbot start") + " to serve and " +
			promptStyle.Render("slothbot doctor") + " to verify setup.\n")
	case stepError:
		b.WriteString(errorStyle.Render("Setup failed: "+m.errFinal.Error()) + "\n")
	}

	return boxStyle.Render(b.String())
}

func validateTokenCmd(token string) tea.Cmd {
	return func() tea.Msg {
		if err := validateTokenFunc(token); err != nil {
			return tokenInvalidMsg{err: err}
		}
		return tokenValidMsg{}
	}
}

func writeConfigCmd(result initResult, store secrets.Store, forceOverwrite bool) tea.Cmd {
	return func() tea.Msg {
		path, err := storeSecretsAndWriteConfig(result, store, forceOverwrite)
		if err != nil {
			return err
		}
		return configWrittenMsg{path: path}
	}
}

// checkChannelSecret accepts LINE's 32 hex digit channel secrets.
func checkChannelSecret(secret string) error {
	if secret == "" {
		return slotherr.New(slotherr.CodeCLIInputInvalid, "channel secret must not be empty")
	}
	if b, err := hex.DecodeString(secret); err != nil || len(b) != 16 {
		return slotherr.New(slotherr.CodeCLIInputInvalid, "channel secret should be 32 hexadecimal characters")
	}
	return nil
}

func checkPublicURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return slotherr.New(slotherr.CodeCLIInputInvalid, "public URL must be an absolute http(s) URL")
	}
	return nil
}

type generatedConfig struct {
	Networking struct {
		Listen        string `yaml:"listen"`
		PublicBaseURL string `yaml:"public_base_url"`
	} `yaml:"networking"`
	Storage struct {
		Backend string `yaml:"backend"`
	} `yaml:"storage"`
	Blobs struct {
		Backend string `yaml:"backend"`
	} `yaml:"blobs"`
	Line struct {
		ChannelSecret      string `yaml:"channel_secret"`
		ChannelAccessToken string `yaml:"channel_access_token"`
	} `yaml:"line"`
	Workflow struct {
		DonePolicy string             `yaml:"done_policy"`
		Categories []command.Category `yaml:"categories"`
	} `yaml:"workflow"`
}

// GenerateConfigYAML renders the config the wizard writes. Secrets appear
// only as keyring:// references.
func GenerateConfigYAML(result initResult) ([]byte, error) {
	var gc generatedConfig
	gc.Networking.Listen = "0.0.0.0:18790"
	gc.Networking.PublicBaseURL = result.PublicBaseURL
	gc.Storage.Backend = "sqlite"
	gc.Blobs.Backend = "local"
	gc.Line.ChannelSecret = secrets.Ref(secrets.KeyChannelSecret)
	gc.Line.ChannelAccessToken = secrets.Ref(secrets.KeyChannelAccessToken)
	gc.Workflow.DonePolicy = string(command.DoneNever)
	gc.Workflow.Categories = command.DefaultCategories()

	body, err := yaml.Marshal(&gc)
	if err != nil {
		return nil, slotherr.Errorf(slotherr.CodeCLISetupFailure, "encoding config: %w", err)
	}
	header := "# Slothbot configuration, generated by slothbot init.\n" +
		"# Secrets live in the OS keyring; see 'slothbot secret list'.\n\n"
	return append([]byte(header), body...), nil
}

// configPathForWrite is swapped in tests.
var configPathForWrite = config.DefaultConfigPath

// storeSecretsAndWriteConfig saves the credentials to the keyring and
// writes the config. An existing config is kept unless forceOverwrite.
// Keyring entries stored before a failed write are overwritten on rerun.
func storeSecretsAndWriteConfig(result initResult, store secrets.Store, forceOverwrite bool) (string, error) {
	cfgPath, err := configPathForWrite()
	if err != nil {
		return "", err
	}
	if !forceOverwrite {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return "", slotherr.Errorf(slotherr.CodeConfigAlreadyExists,
				"config file already exists at %s; use --force to overwrite", cfgPath)
		}
	}

	for key, value := range map[string]string{
		secrets.KeyChannelAccessToken: result.AccessToken,
		secrets.KeyChannelSecret:      result.ChannelSecret,
	} {
		if err := store.Store(secrets.Service, key, value); err != nil {
			return "", slotherr.Wrapf(err, slotherr.CodeSecretStoreFailure, "storing %s", key)
		}
	}

	data, err := GenerateConfigYAML(result)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", slotherr.Errorf(slotherr.CodeCLISetupFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", slotherr.Errorf(slotherr.CodeCLISetupFailure, "writing config to %s: %w", cfgPath, err)
	}
	return cfgPath, nil
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard",
		Long: `Walk through connecting slothbot to a LINE channel:
  1. Channel access token (checked against the LINE API)
  2. Channel secret (used to verify webhook signatures)
  3. Public URL LINE uses to reach the bot

Credentials are stored in the OS keyring and referenced from the config
file via keyring:// URIs.`,
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "Overwrite existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !stdinIsTerminal(f) {
		_, _ = cmd.ErrOrStderr().Write([]byte(
			"slothbot init requires an interactive terminal.\n" +
				"To configure slothbot non-interactively, edit ~/.config/slothbot/slothbot.yaml\n" +
				"or set CHANNEL_ACCESS_TOKEN and CHANNEL_SECRET.\n"))
		return slotherr.New(slotherr.CodeCLISetupFailure, "slothbot init: not an interactive terminal")
	}

	m := newInitModel(secretStoreFactory())
	m.forceOverwrite, _ = cmd.Flags().GetBool("force")

	finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return slotherr.Errorf(slotherr.CodeCLISetupFailure, "init wizard error: %w", err)
	}
	fm, ok := finalModel.(initModel)
	if !ok {
		return slotherr.New(slotherr.CodeCLISetupFailure, "unexpected model type after wizard")
	}
	if fm.errFinal != nil {
		return slotherr.Errorf(slotherr.CodeCLISetupFailure, "init failed: %w", fm.errFinal)
	}
	return nil
}
