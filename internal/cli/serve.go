package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/KafClaw/commander/internal/bus"
	"github.com/KafClaw/commander/internal/config"
	"github.com/KafClaw/commander/internal/dispatch"
	"github.com/KafClaw/commander/internal/gateway"
	"github.com/KafClaw/commander/internal/media"
	"github.com/KafClaw/commander/internal/notify"
	"github.com/KafClaw/commander/internal/provider"
	"github.com/KafClaw/commander/internal/scheduler"
	"github.com/KafClaw/commander/internal/sinks"
	"github.com/KafClaw/commander/internal/timeline"
	"github.com/KafClaw/commander/internal/voice"
)

var serveSignalNotify = signal.Notify
var serveSignalStop = signal.Stop

var serveNoQR bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (chat, reminders, alarms)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoQR, "no-qr", false, "Do not print the terminal QR code")
}

func runServe() error {
	printHeader("🚀 COMMANDER ELON RUNNING")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	lock := scheduler.NewInstanceLock(filepath.Join(cfg.Paths.DataDir, "commander.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("instance lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another commander (pid %d) is already serving %s", lock.Holder(), cfg.Paths.DataDir)
	}
	defer lock.Unlock()

	var tl *timeline.TimelineService
	if cfg.Timeline.Enabled {
		tl, err = timeline.Open(cfg.Timeline.Driver, cfg.Timeline.Path)
		if err != nil {
			return fmt.Errorf("open timeline: %w", err)
		}
		defer tl.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := notify.NewStore(cfg.Scheduler.MaxQueueDepth)
	prov := provider.Resolve(cfg)
	synth, err := newSynthesizer(ctx, cfg, prov, store)
	if err != nil {
		return err
	}

	msgBus := bus.NewMessageBus()
	sinkList := sinks.FromConfig(cfg, tl)
	sinks.Attach(msgBus, cfg.Capabilities.Timeout.Duration, sinkList...)
	defer sinks.CloseAll(sinkList)
	go msgBus.DispatchOutbound(ctx)

	schedOpts := []scheduler.Option{scheduler.WithBus(msgBus)}
	if tl != nil {
		schedOpts = append(schedOpts, scheduler.WithRecorder(tl))
	}
	sched := scheduler.New(scheduler.Config{
		MaxConcurrentFires: cfg.Scheduler.MaxConcurrentFires,
		FireTimeout:        cfg.Capabilities.Timeout.Duration,
	}, store, synthOrNil(synth), schedOpts...)

	disp := newDispatcher(cfg, prov, synth, sched)

	publicURL := uiURL(cfg)
	var tlView gateway.Timeline
	if tl != nil {
		tlView = tl
	}
	gw := gateway.New(gateway.Options{
		AuthToken: cfg.Gateway.AuthToken,
		PublicURL: publicURL,
		VoiceDir:  cfg.Paths.VoiceDir,
		Version:   version,
		Outbound:  msgBus,
	}, disp, store, sched, tlView)

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Printf("🌐 UI:       %s\n", publicURL)
	fmt.Printf("🗂  Data dir: %s\n", cfg.Paths.DataDir)
	if synth != nil {
		fmt.Printf("🔊 Voice:    %s (retention %s)\n", synth.Dir(), cfg.Speech.Retention)
	}
	if tl != nil {
		fmt.Printf("📜 Timeline: %s (%s)\n", cfg.Timeline.Path, cfg.Timeline.Driver)
	}
	for _, s := range sinkList {
		fmt.Printf("📤 Sink:     %s\n", s.Name())
	}
	if !serveNoQR {
		if q, err := qrcode.New(publicURL, qrcode.Medium); err == nil {
			fmt.Println(q.ToSmallString(false))
		}
	}
	fmt.Println(color.GreenString("Press Ctrl+C to stop."))

	sigChan := make(chan os.Signal, 1)
	serveSignalNotify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer serveSignalStop(sigChan)

	var runErr error
	select {
	case <-sigChan:
		fmt.Println("\nShutting down...")
	case runErr = <-errCh:
		slog.Error("HTTP server failed", "addr", addr, "error", runErr)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := sched.Close(shutdownCtx); err != nil {
		slog.Warn("Scheduler shutdown incomplete", "error", err)
	}
	cancel()
	return runErr
}

// newSynthesizer returns nil when no speech key is configured, so replies
// and notifications carry an empty voice handle. The janitor never prunes
// clips that store still holds for a poller.
func newSynthesizer(ctx context.Context, cfg *config.Config, prov provider.LLMProvider, store *notify.Store) (*voice.FileSynthesizer, error) {
	if cfg.Providers.OpenAI.APIKey == "" {
		slog.Warn("No OpenAI API key configured; voice synthesis disabled")
		return nil, nil
	}
	synth, err := voice.NewFileSynthesizer(prov, cfg.Paths.VoiceDir, voice.Options{
		Voice:  cfg.Speech.Voice,
		Model:  cfg.Speech.Model,
		Format: cfg.Speech.Format,
	})
	if err != nil {
		return nil, err
	}
	go synth.RunJanitor(ctx, cfg.Speech.Retention.Duration, 0, store.HasVoice)
	return synth, nil
}

func synthOrNil(s *voice.FileSynthesizer) scheduler.Synthesizer {
	if s == nil {
		return nil
	}
	return s
}

func newDispatcher(cfg *config.Config, prov provider.LLMProvider, synth *voice.FileSynthesizer, sched dispatch.Scheduler) *dispatch.Dispatcher {
	var completer dispatch.Completer
	if prov != nil {
		completer = &dispatch.ChatCompleter{
			Provider:     prov,
			Model:        cfg.Model.Name,
			SystemPrompt: cfg.Model.SystemPrompt,
			MaxTokens:    cfg.Model.MaxTokens,
			Temperature:  cfg.Model.Temperature,
		}
	}
	var ds dispatch.Synthesizer
	if synth != nil {
		ds = synth
	}
	searcher := media.NewSearcher(cfg.Media.YouTubeAPIKey, cfg.Media.APIBase, cfg.Media.WebBase)
	return dispatch.New(completer, searcher, ds, sched, dispatch.Options{
		PersonaTag:   cfg.Model.PersonaTag,
		OfflineReply: cfg.Model.OfflineReply,
		DefaultSongs: cfg.Media.DefaultSongs,
		WebBase:      cfg.Media.WebBase,
		MaxDelay:     cfg.Scheduler.MaxDelay.Duration,
		Timeout:      cfg.Capabilities.Timeout.Duration,
	})
}

// uiURL is the address phones on the LAN should open.
func uiURL(cfg *config.Config) string {
	if cfg.Gateway.PublicURL != "" {
		return cfg.Gateway.PublicURL
	}
	host := cfg.Gateway.Host
	switch host {
	case "", "0.0.0.0", "::":
		if ip := lanIP(); ip != "" {
			host = ip
		} else {
			host = "127.0.0.1"
		}
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Gateway.Port)) + "/"
}

func lanIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() && ipn.IP.To4() != nil {
			return ipn.IP.String()
		}
	}
	return ""
}
