package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mvaldes/atlasbot/internal/assistant"
	"github.com/mvaldes/atlasbot/internal/assistant/incident"
	"github.com/mvaldes/atlasbot/internal/assistant/issueagent"
	"github.com/mvaldes/atlasbot/internal/assistant/wikiagent"
	"github.com/mvaldes/atlasbot/internal/config"
	"github.com/mvaldes/atlasbot/internal/confluence"
	"github.com/mvaldes/atlasbot/internal/jira"
	"github.com/mvaldes/atlasbot/internal/logging"
	"github.com/mvaldes/atlasbot/internal/provider"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with the assistant.

Messages are classified and routed to the Jira agent, the Confluence
agent or the incident-report dialogue. Type "salir" or press Ctrl+D to
end the session.

Examples:
  # Start a session with the default config file
  atlasbot chat

  # Use a specific config file and verbose logging
  atlasbot chat --config ./atlasbot.yaml --log-level debug`,
	RunE: runChat,
}

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	bannerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if err := logging.Initialize(level); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	orchestrator, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Println(bannerStyle.Render(fmt.Sprintf("atlasbot %s (escribe \"salir\" para terminar)", Version)))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userStyle.Render("tú> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "salir") {
			break
		}
		if ctx.Err() != nil {
			break
		}

		reply := orchestrator.Process(ctx, line)
		fmt.Println(assistantStyle.Render("bot> " + reply))
	}

	// Teardown fast path; the reply is intentionally empty.
	orchestrator.Process(context.Background(), assistant.CleanupSignal)
	fmt.Println(bannerStyle.Render("hasta luego"))
	return scanner.Err()
}

// buildOrchestrator assembles a fresh session with all its collaborators.
func buildOrchestrator(cfg *config.Config) (*assistant.Orchestrator, error) {
	llm, err := provider.NewAnthropicProviderWithKey(cfg.LLM.APIKey, provider.Config{
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	jiraClient := jira.NewClient(cfg.Jira.BaseURL, cfg.Jira.Email, cfg.Jira.APIToken, cfg.Jira.ProjectKey)
	wikiClient := confluence.NewClient(cfg.Confluence.BaseURL, cfg.Confluence.Email, cfg.Confluence.APIToken)

	session := assistant.NewSession(time.Now(), cfg.HistoryCap)
	metrics := assistant.NewMetrics(prometheus.DefaultRegisterer)

	return assistant.NewOrchestrator(
		session,
		assistant.NewClassifier(llm),
		issueagent.New(llm, jiraClient),
		wikiagent.New(llm, wikiClient),
		incident.NewFlow(wikiClient, cfg.Confluence.IncidentSpace),
		metrics,
	), nil
}
