package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/gatecheck/internal/camera"
	"github.com/abrezinsky/gatecheck/internal/config"
	"github.com/abrezinsky/gatecheck/internal/decoder"
	"github.com/abrezinsky/gatecheck/internal/handlers"
	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/publisher"
	"github.com/abrezinsky/gatecheck/internal/repository"
	"github.com/abrezinsky/gatecheck/internal/scanner"
	"github.com/abrezinsky/gatecheck/internal/services"
	"github.com/abrezinsky/gatecheck/internal/websocket"
	"github.com/abrezinsky/gatecheck/pkg/checkinapi"
)

const shutdownTimeout = 5 * time.Second

// App holds all application dependencies
type App struct {
	log       logger.Logger
	cfg       *config.Config
	handlers  *handlers.Handlers
	repo      *repository.Repository
	hub       *websocket.Hub
	session   *scanner.Session
	publisher *publisher.Publisher
	settings  *services.SettingsService
	tickets   *services.TicketQRService
	closeOnce sync.Once
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config, templatesFS, staticFS fs.FS) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	client := checkinapi.NewHTTPClient(cfg.CheckInURL, cfg.RequestTimeout, log)

	hub := websocket.New(log)
	device, err := newDevice(cfg, hub, log)
	if err != nil {
		repo.Close()
		return nil, err
	}

	session := scanner.New(log, device, decoder.New(), client, scanner.Options{
		DedupeWindow:   cfg.DedupeWindow,
		RequestTimeout: cfg.RequestTimeout,
	})
	hub.SetSession(session)
	session.SetBroadcaster(hub)

	// Initialize services
	history := services.NewHistoryService(log, repo)
	pub := publisher.New(publisher.ParseBrokers(cfg.KafkaBrokers), cfg.KafkaTopic, log)
	session.SetRecorder(scanner.Recorders{history, pub})

	settings := services.NewSettingsService(log, repo, client)
	settings.AddLabelSetter(pub)
	tickets := services.NewTicketQRService(log, settings)

	a := &App{
		log:       log,
		cfg:       cfg,
		repo:      repo,
		hub:       hub,
		session:   session,
		publisher: pub,
		settings:  settings,
		tickets:   tickets,
	}

	ctx := context.Background()
	a.seedDefaults(ctx)
	if err := settings.Apply(ctx, cfg.CheckInURL); err != nil {
		a.closeResources()
		return nil, fmt.Errorf("failed to apply settings: %w", err)
	}

	h, err := handlers.New(handlers.Deps{
		Session:  session,
		History:  history,
		Settings: settings,
		Tickets:  tickets,
		Hub:      hub,
		Health:   repo,
		Log:      log,
	}, templatesFS, handlers.NewStaticServer(staticFS))
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}
	a.handlers = h

	hub.Start()
	return a, nil
}

// newDevice builds the configured camera source
func newDevice(cfg *config.Config, hub *websocket.Hub, log logger.Logger) (camera.Device, error) {
	switch cfg.Camera {
	case config.CameraSpool:
		return camera.NewSpoolDevice(cfg.SpoolDir, cfg.SpoolInterval, cfg.SpoolConsume, log), nil
	case config.CameraBrowser, "":
		device := camera.NewBrowserDevice(hub, log)
		if cfg.CameraTimeout > 0 {
			device.SetOpenTimeout(cfg.CameraTimeout)
		}
		hub.SetCamera(device)
		return device, nil
	default:
		return nil, fmt.Errorf("unknown camera source %q", cfg.Camera)
	}
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Session returns the kiosk scan session
func (a *App) Session() *scanner.Session {
	return a.session
}

// Tickets returns the ticket label service
func (a *App) Tickets() *services.TicketQRService {
	return a.tickets
}

// Close stops scanning and releases app resources. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.session.Stop()
		a.session.Wait()
		a.hub.Stop()
		a.closeResources()
	})
}

func (a *App) closeResources() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("Failed to close publisher", "error", err)
		}
	}
	if err := a.repo.Close(); err != nil {
		a.log.Warn("Failed to close database", "error", err)
	}
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.log.Info("Kiosk server starting", "url", KioskURL(ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	// release the camera and disconnect kiosk pages
	a.session.Stop()
	a.hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// seedDefaults stores configured values for settings that are still empty.
// Values edited through the API are kept.
func (a *App) seedDefaults(ctx context.Context) {
	seed := []struct {
		key   string
		value string
	}{
		{repository.SettingEventLabel, a.cfg.EventLabel},
		{repository.SettingTicketQRURL, a.cfg.TicketBaseURL},
	}
	for _, s := range seed {
		if s.value == "" {
			continue
		}
		existing, _ := a.repo.GetSetting(ctx, s.key)
		if existing != "" {
			continue
		}
		if err := a.repo.SetSetting(ctx, s.key, s.value); err != nil {
			a.log.Warn("Failed to seed setting", "key", s.key, "error", err)
		} else {
			a.log.Info("Default setting stored", "key", s.key, "value", s.value)
		}
	}
}

// KioskURL returns the address a tablet on the LAN should open for a server listening on addr
func KioskURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = getPreferredIP(realNetworkProvider{})
	}
	return "http://" + net.JoinHostPort(host, port)
}

// LocalURL returns the loopback address for a server listening on addr
func LocalURL(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://localhost" + addr
	}
	return "http://" + net.JoinHostPort("localhost", port)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider lists network interfaces
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the IPv4 address kiosk tablets can most likely reach,
// preferring private ranges. Falls back to localhost.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
