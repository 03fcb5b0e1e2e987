package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/clock"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/notifications"
	"github.com/desertthunder/cadence/internal/paging"
	"github.com/desertthunder/cadence/internal/repositories"
	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	token      string
	store      models.Store
	session    *repositories.SessionRepository
	httpClient *http.Client
	clock      clock.Clock
	logger     *log.Logger
	output     io.Writer

	client        *services.Client
	auth          *services.AuthService
	notifications *services.NotificationService
	catalog       *services.CatalogService
	manager       *notifications.Manager
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Token      string
	Store      models.Store
	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) (*Runner, error) {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Store == nil {
		opts.Store = repositories.NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		token:      opts.Token,
		store:      opts.Store,
		session:    repositories.NewSessionRepository(opts.Store),
		httpClient: opts.HTTPClient,
		clock:      opts.Clock,
		output:     opts.Output,
	}
	if err := r.build(opts.Logger); err != nil {
		return nil, err
	}
	return r, nil
}

// build (re)creates the API client, the services and the notification manager so they log to logger.
func (r *Runner) build(logger *log.Logger) error {
	api := r.config.API
	client, err := services.NewClient(services.ClientOpts{
		BaseURL:    api.BaseURL,
		Token:      r.token,
		HTTPClient: r.httpClient,
		Timeout:    api.Timeout,
		RateLimit:  api.RateLimit,
		Burst:      api.Burst,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	inbox := services.NewNotificationService(client)
	n := r.config.Notifications
	manager, err := notifications.NewManager(notifications.ManagerOpts{
		Service:       inbox,
		Store:         r.store,
		Clock:         r.clock,
		Logger:        logger,
		PageSize:      n.PageSize,
		PollInterval:  n.PollInterval,
		DebounceDelay: n.Debounce,
		SettleDelay:   n.SettleDelay,
	})
	if err != nil {
		return err
	}

	if r.manager != nil {
		r.manager.Close()
	}
	r.logger = logger
	r.client = client
	r.auth = services.NewAuthService(client)
	r.notifications = inbox
	r.catalog = services.NewCatalogService(client)
	r.manager = manager
	return nil
}

// SetLogger rebuilds the runner's dependencies around l.
func (r *Runner) SetLogger(l *log.Logger) error {
	return r.build(l)
}

// Close stops background notification work.
func (r *Runner) Close() {
	if r.manager != nil {
		r.manager.Close()
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, notificationsCommand, songsCommand, playlistsCommand, submissionsCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireSession starts a notification session, failing when no token is configured.
func (r *Runner) requireSession(ctx context.Context) error {
	if !r.client.Authenticated() {
		return fmt.Errorf("%w: run 'cadence auth login' first", shared.ErrNotAuthenticated)
	}
	return r.manager.SetAuthenticated(ctx, true)
}

// collect walks a [paging.Loader] over fetch for up to pages pages. pages <= 0 walks every page.
func collect[T any](ctx context.Context, fetch paging.Fetcher[T], limit, pages int, logger *log.Logger) (paging.Snapshot[T], error) {
	loader := paging.NewLoader(fetch, paging.LoaderOpts{Limit: limit, Logger: logger})
	for i := 0; pages <= 0 || i < pages; i++ {
		if err := loader.Next(ctx); err != nil {
			return loader.Snapshot(), err
		}
		if !loader.Snapshot().HasMore {
			break
		}
	}
	return loader.Snapshot(), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
