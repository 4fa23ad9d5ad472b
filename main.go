package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/multimediallc/pr-import-bot/internal/app"
	"github.com/multimediallc/pr-import-bot/internal/config"
	"github.com/multimediallc/pr-import-bot/internal/git"
	gh "github.com/multimediallc/pr-import-bot/internal/github"
	gl "github.com/multimediallc/pr-import-bot/internal/gitlab"
	"github.com/multimediallc/pr-import-bot/internal/server"
	"github.com/multimediallc/pr-import-bot/internal/tracker"
	"github.com/sirupsen/logrus"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func ignoreError[V any, E error](res V, _ E) V {
	return res
}

type settings struct {
	configPath    string
	listenAddr    string
	appID         int64
	pemFile       string
	webhookSecret string
	jiraHost      string
	jiraUser      string
	jiraToken     string
	gitlabURL     string
	gitlabToken   string
	verbose       bool
}

func parseSettings(args []string) (settings, error) {
	var s settings
	flags := flag.NewFlagSet("pr-import-bot", flag.ContinueOnError)
	flags.StringVar(&s.configPath, "config", getEnv("BOT_CONFIG", config.DefaultPath), "Path to the bot configuration (toml or yaml)")
	flags.StringVar(&s.listenAddr, "listen", getEnv("LISTEN_ADDR", ":8080"), "Address to serve the webhook on")
	flags.Int64Var(&s.appID, "app-id", ignoreError(strconv.ParseInt(getEnv("GITHUB_APP_ID", "0"), 10, 64)), "GitHub App ID")
	flags.StringVar(&s.pemFile, "pem", getEnv("GITHUB_PEM_FILE", ""), "Path to the GitHub App private key")
	flags.StringVar(&s.webhookSecret, "webhook-secret", getEnv("GITHUB_WEBHOOK_SECRET", ""), "GitHub webhook secret")
	flags.StringVar(&s.jiraHost, "jira-host", getEnv("JIRA_HOST", ""), "Jira base URL")
	flags.StringVar(&s.jiraUser, "jira-user", getEnv("JIRA_USER", ""), "Jira user")
	flags.StringVar(&s.jiraToken, "jira-token", getEnv("JIRA_TOKEN", ""), "Jira API token")
	flags.StringVar(&s.gitlabURL, "gitlab-url", getEnv("GITLAB_URL", ""), "GitLab base URL")
	flags.StringVar(&s.gitlabToken, "gitlab-token", getEnv("GITLAB_TOKEN", ""), "GitLab access token")
	flags.BoolVar(&s.verbose, "v", ignoreError(strconv.ParseBool(getEnv("VERBOSE", "0"))), "Verbose output")
	if err := flags.Parse(args); err != nil {
		return s, err
	}

	badFlags := make([]string, 0, 3)
	if s.appID == 0 {
		badFlags = append(badFlags, "app-id")
	}
	if s.pemFile == "" {
		badFlags = append(badFlags, "pem")
	}
	if s.jiraHost == "" {
		badFlags = append(badFlags, "jira-host")
	}
	if len(badFlags) > 0 {
		return s, fmt.Errorf("required flags or environment variables not set: %s", badFlags)
	}
	return s, nil
}

func buildApp(s settings, conf *config.Config, logger *logrus.Logger) (*app.App, error) {
	auth, err := gh.NewAppAuthFromFile(s.appID, s.pemFile)
	if err != nil {
		return nil, err
	}
	jira, err := tracker.NewJiraTracker(tracker.BasicAuthClient(s.jiraUser, s.jiraToken), s.jiraHost, *conf.Tracker, conf.Areas.Default)
	if err != nil {
		return nil, err
	}
	deps := app.Dependencies{
		Config:  conf,
		Clients: auth.InstallationClient,
		Tracker: jira,
		Logger:  logger,
	}
	if s.gitlabURL != "" && conf.Mirror.ProjectID != "" {
		mergeRequests, err := gl.NewClient(s.gitlabURL, s.gitlabToken, conf.Mirror.ProjectID)
		if err != nil {
			return nil, err
		}
		deps.Mirror = git.NewMirror(conf.Mirror.TempDir)
		deps.MergeRequests = mergeRequests
	}
	return app.New(deps)
}

func startupWarnings(s settings, conf *config.Config) []string {
	warnings := conf.Warnings()
	if s.webhookSecret == "" {
		warnings = append(warnings, "GITHUB_WEBHOOK_SECRET is empty, webhook signatures are not verified")
	}
	return warnings
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	s, err := parseSettings(os.Args[1:])
	if err != nil {
		logger.WithError(err).Fatal("invalid settings")
	}
	if s.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	conf, err := config.ReadConfig(s.configPath, nil)
	if err != nil {
		logger.WithError(err).WithField("config", s.configPath).Fatal("reading config")
	}
	for _, warning := range startupWarnings(s, conf) {
		logger.Warn(warning)
	}

	application, err := buildApp(s, conf, logger)
	if err != nil {
		logger.WithError(err).Fatal("setting up")
	}

	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           server.NewRouter(application, []byte(s.webhookSecret), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithField("addr", s.listenAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("serving")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}
