package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
)

const (
	defaultPortalURL       = "https://cumberlandfarms-sso.prd.mykronos.com/wfd/ess/myschedule"
	defaultTimezone        = "America/New_York"
	defaultCalendarID      = "primary"
	defaultEventSummary    = "Work Shift"
	defaultEventLocation   = "Cumberland Farms"
	defaultCredentialsFile = "credentials.json"
	defaultTokenFile       = "token.json"
)

type app struct {
	*Common
	cfg appConfig
}

type appConfig struct {
	debug     bool
	output    io.Writer
	goVersion string
	buildDate time.Time

	// portal login
	portalURL string
	username  string
	password  string

	// calendar target. location is resolved from timezone once at startup.
	timezone      string
	location      *time.Location
	calendarID    string
	eventSummary  string
	eventLocation string

	// credentialsFile is the operator-provisioned OAuth client secret,
	// tokenFile is the token cache written by this program.
	credentialsFile string
	tokenFile       string

	chromePath string
	headless   bool
	dryRun     bool
}

type Common struct {
	logger   *slog.Logger
	reporter *reporter
}

// cliFlags are applied on top of the environment.
type cliFlags struct {
	envFile  string
	dryRun   bool
	headless bool
	debug    bool
}

// Initialize loads the env file, builds the config from the environment and
// flags, and wires the shared logger and console reporter. A missing password
// is prompted for on in.
func Initialize(in io.Reader, output io.Writer, flags cliFlags) (app, error) {
	if err := loadEnvFile(flags.envFile); err != nil {
		return app{}, err
	}

	cfg, err := newAppConfig(output, os.Getenv)
	if err != nil {
		return app{}, fmt.Errorf("Could not initialize app config. err: %w", err)
	}
	cfg.debug = cfg.debug || flags.debug
	cfg.headless = cfg.headless || flags.headless
	cfg.dryRun = flags.dryRun

	common, err := newCommon(cfg)
	if err != nil {
		return app{}, fmt.Errorf("Could not initialize Common struct. err: %w", err)
	}

	if cfg.password == "" {
		password, err := promptPassword(in, output)
		if err != nil {
			return app{}, err
		}
		cfg.password = password
	}

	return newApp(cfg, common), nil
}

// loadEnvFile reads a .env file into the process environment. A missing
// file is fine; the variables may already be exported.
func loadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("Could not load environment variables from %q. err: %w", path, err)
	}
	return nil
}

func newAppConfig(output io.Writer, getenv func(string) string) (appConfig, error) {
	var goVersion string
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		goVersion = buildInfo.GoVersion
	}

	cfg := appConfig{
		debug:           envBool(getenv, "DEBUG"),
		output:          output,
		goVersion:       goVersion,
		buildDate:       time.Now(),
		portalURL:       envOr(getenv, "KRONOS_URL", defaultPortalURL),
		username:        strings.TrimSpace(getenv("KRONOS_USERNAME")),
		password:        getenv("KRONOS_PASSWORD"),
		timezone:        envOr(getenv, "TIMEZONE", defaultTimezone),
		calendarID:      envOr(getenv, "CALENDAR_ID", defaultCalendarID),
		eventSummary:    envOr(getenv, "EVENT_SUMMARY", defaultEventSummary),
		eventLocation:   envOr(getenv, "EVENT_LOCATION", defaultEventLocation),
		credentialsFile: envOr(getenv, "GOOGLE_CREDENTIALS_FILE", defaultCredentialsFile),
		tokenFile:       envOr(getenv, "GOOGLE_TOKEN_FILE", defaultTokenFile),
		chromePath:      getenv("CHROME_PATH"),
		headless:        envBool(getenv, "HEADLESS"),
	}

	if cfg.username == "" {
		return cfg, errors.New("KRONOS_USERNAME is not set")
	}

	loc, err := time.LoadLocation(cfg.timezone)
	if err != nil {
		return cfg, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.timezone, err)
	}
	cfg.location = loc

	return cfg, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

// envBool treats unset or unparseable values as false.
func envBool(getenv func(string) string, key string) bool {
	v := getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not parse %s env variable. err: %v\n", key, err)
		return false
	}
	return b
}

func newCommon(cfg appConfig) (*Common, error) {
	// Structured logging setup
	logLevel := slog.LevelInfo
	if cfg.debug {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	logger := slog.New(slog.NewTextHandler(cfg.output, opts))
	slog.SetDefault(logger)

	return &Common{
		logger:   logger,
		reporter: newReporter(cfg.output),
	}, nil
}

func newApp(cfg appConfig, common *Common) app {
	common.logger.Debug("App initialized", "goVersion", cfg.goVersion,
		"timezone", cfg.timezone, "calendarID", cfg.calendarID,
		"headless", cfg.headless, "dryRun", cfg.dryRun)
	return app{
		Common: common,
		cfg:    cfg,
	}
}

// portal is the authenticated scheduling site. Close tears down the browser
// behind it and is safe to call once the portal has been opened.
type portal interface {
	login(codes codeProvider) error
	fetchScheduleRows() ([]scheduleRow, error)
	Close()
}

// stages holds the external capabilities the sync pipeline runs against.
type stages struct {
	openPortal func(ctx context.Context) (portal, error)
	calendar   func(ctx context.Context) (eventInserter, error)
	codes      codeProvider
}

// defaultStages returns the production wiring: chromedp for the portal,
// Google Calendar (or a dry-run printer) for publishing, the console for the
// MFA code.
func (a app) defaultStages(in io.Reader) stages {
	return stages{
		openPortal: a.openKronos,
		calendar:   a.openCalendar,
		codes:      newConsoleCodeProvider(in, a.reporter),
	}
}

func (a app) openKronos(ctx context.Context) (portal, error) {
	session, err := launchBrowser(ctx, a.Common, a.cfg)
	if err != nil {
		return nil, err
	}
	return newKronosPortal(a.Common, session, a.cfg), nil
}

func (a app) openCalendar(ctx context.Context) (eventInserter, error) {
	if a.cfg.dryRun {
		return newDryRunInserter(a.Common), nil
	}
	mgr := newCredentialManager(a.Common, a.cfg.credentialsFile, a.cfg.tokenFile)
	client, err := mgr.client(ctx)
	if err != nil {
		return nil, err
	}
	return newGoogleCalendarService(ctx, a.Common, client, a.cfg.calendarID)
}

// run executes the whole sync and reports the outcome. Stage errors are
// reported and swallowed; only a missing client secret is returned so the
// caller can exit non-zero. The browser is closed before run returns in
// every case.
func (a app) run(ctx context.Context, s stages) error {
	a.reporter.status("🚀", "Starting schedule synchronization...")

	err := a.sync(ctx, s)
	switch {
	case errors.Is(err, errMissingClientSecret):
		a.logger.Error("OAuth client secret file is missing", "path", a.cfg.credentialsFile)
		a.reporter.clientSecretHelp(a.cfg.credentialsFile)
	case err != nil:
		a.logger.Error("schedule sync failed", "err", err)
		a.reporter.failure("🔥", "Error: %v", err)
		err = nil
	default:
		a.reporter.success("🎉", "Success! Schedule transferred to Google Calendar")
	}

	a.reporter.success("✅", "Script completed")
	return err
}

func (a app) sync(ctx context.Context, s stages) error {
	p, err := s.openPortal(ctx)
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	defer func() {
		p.Close()
		a.logger.Debug("browser session closed")
	}()

	if err := p.login(s.codes); err != nil {
		return fmt.Errorf("logging into portal: %w", err)
	}

	a.reporter.status("🔍", "Extracting schedule...")
	rows, err := p.fetchScheduleRows()
	if err != nil {
		return fmt.Errorf("extracting schedule: %w", err)
	}
	records := extractShifts(a.logger, rows)
	a.logger.Info("Extracted shifts from schedule", "rows", len(rows), "shifts", len(records))
	if len(records) == 0 {
		a.reporter.warn("⚠️", "No shifts found in schedule")
	}

	inserter, err := s.calendar(ctx)
	if err != nil {
		return fmt.Errorf("authorizing calendar access: %w", err)
	}

	pub := newPublisher(a.Common, inserter, a.cfg)
	summary := pub.publish(ctx, records)
	a.logger.Info("Finished publishing shifts", "attempted", summary.attempted,
		"created", summary.created, "failed", summary.failed)
	return nil
}
