// Package app wires every claimwright component — provider adapters, storage
// backends, the knowledge base, job queue, device multiplexer, and the
// transcription/extraction/validation/reporting pipeline — into a single
// runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/claimwright/internal/claims"
	"github.com/MrWong99/claimwright/internal/config"
	"github.com/MrWong99/claimwright/internal/devicemux"
	docstorepg "github.com/MrWong99/claimwright/internal/knowledgebase/docstore/postgres"
	"github.com/MrWong99/claimwright/internal/health"
	"github.com/MrWong99/claimwright/internal/httpapi"
	"github.com/MrWong99/claimwright/internal/jobqueue"
	"github.com/MrWong99/claimwright/internal/knowledgebase"
	"github.com/MrWong99/claimwright/internal/observe"
	"github.com/MrWong99/claimwright/internal/report"
	"github.com/MrWong99/claimwright/internal/resilience"
	"github.com/MrWong99/claimwright/internal/transcription"
	"github.com/MrWong99/claimwright/internal/validator"
	"github.com/MrWong99/claimwright/pkg/coretypes"
	"github.com/MrWong99/claimwright/pkg/inference/asr"
	"github.com/MrWong99/claimwright/pkg/inference/embed"
	"github.com/MrWong99/claimwright/pkg/inference/llm"
	profilestorepg "github.com/MrWong99/claimwright/pkg/profilestore/postgres"
	vectorindexpg "github.com/MrWong99/claimwright/pkg/vectorindex/postgres"
)

// Providers carries the inference adapters built from cfg.Providers by the
// caller's registry before App construction.
type Providers struct {
	LLM        llm.Provider
	ASR        asr.Provider
	Embeddings embed.Provider
}

// validationConcurrency bounds how many claims from a single transcript are
// adjudicated in parallel; adjudication is LLM-bound so this also caps how
// much of one queue slot's LLM budget a single transcript can monopolize.
const validationConcurrency = 4

// App is the fully wired claimwright engine.
type App struct {
	cfg     *config.Config
	watcher *config.Watcher

	kb        *knowledgebase.KnowledgeBase
	queue     *jobqueue.Queue
	devices   *devicemux.Registry
	stage     *transcription.Stage
	extractor *claims.Extractor
	validator *validator.Validator
	reports   *report.Aggregator
	reportDB  *report.Store

	metrics       *observe.Metrics
	otelShutdown  func(context.Context) error
	api           *httpapi.Server
	httpSrv       *http.Server
	healthHandler *health.Handler

	closers       []closer
	retentionStop chan struct{}
	retentionDone chan struct{}
}

type closer interface {
	Close()
}

// New constructs every component and starts background loops (config
// watcher, retention sweep), but does not yet accept connections — call Run
// for that.
func New(ctx context.Context, configPath string, cfg *config.Config, providers *Providers) (*App, error) {
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "claimwright"})
	if err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	metrics := observe.DefaultMetrics()

	llmP := resilience.NewLLMFallback(providers.LLM, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
	asrP := resilience.NewASRFallback(providers.ASR, cfg.Providers.ASR.Name, resilience.FallbackConfig{})

	vecIndex, err := vectorindexpg.New(ctx, cfg.Storage.PostgresDSN, cfg.Storage.EmbeddingDimensions)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("app: connect vector index: %w", err)
	}
	profiles, err := profilestorepg.New(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("app: connect profile store: %w", err)
	}
	docs, err := docstorepg.New(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("app: connect document store: %w", err)
	}

	kb := knowledgebase.New(vecIndex, profiles, docs, providers.Embeddings, knowledgebase.Config{
		ChunkSize:       cfg.Knowledge.ChunkSize,
		ChunkOverlap:    cfg.Knowledge.ChunkOverlap,
		DefaultTopK:     cfg.Knowledge.TopK,
		DefaultMinScore: cfg.Knowledge.MinScore,
	})

	queue := jobqueue.New(jobqueue.Config{
		GPUSlots:      cfg.Queue.GPUSlots,
		LLMSlots:      cfg.Queue.LLMSlots,
		TotalSlots:    cfg.Queue.TotalSlots,
		QueueCapacity: cfg.Queue.Capacity,
		MaxWaitBoost:  cfg.Queue.MaxWaitBoost(),
		MinGPUFreeGB:  cfg.Queue.MinGPUFreeGB,
	})

	stage := transcription.New(asrP,
		transcription.WithRealtimeFactorCap(float64(cfg.Transcription.RealtimeFactorCap)),
		transcription.WithMetrics(metrics),
	)
	extractor := claims.New(llmP, claims.WithMetrics(metrics))
	val := validator.New(kb, profiles, llmP, validator.Config{
		TopK:            cfg.Knowledge.TopK,
		MinScore:        cfg.Knowledge.MinScore,
		NoDataThreshold: cfg.Knowledge.NoDataThreshold,
		LinkBonus:       cfg.Validator.LinkBonus,
		MaxPassages:     cfg.Validator.LLMContextBudget,
	}, validator.WithMetrics(metrics))
	reports := report.New(llmP, report.WithMetrics(metrics))
	reportDB := report.NewStore()

	a := &App{
		cfg:           cfg,
		kb:            kb,
		queue:         queue,
		stage:         stage,
		extractor:     extractor,
		validator:     val,
		reports:       reports,
		reportDB:      reportDB,
		metrics:       metrics,
		otelShutdown:  otelShutdown,
		retentionStop: make(chan struct{}),
		retentionDone: make(chan struct{}),
	}
	a.closers = []closer{vecIndex, profiles, docs}

	devices := devicemux.New(devicemux.Config{
		MaxJitter:         time.Duration(cfg.Devices.MaxJitterMS) * time.Millisecond,
		SessionMax:        time.Duration(cfg.Devices.SessionMaxSeconds) * time.Second,
		RingBufferSeconds: cfg.Devices.RingBufferSeconds,
		SampleRate:        cfg.Transcription.SampleRate,
	}, a.onUtterance, a.onSessionClosed)
	a.devices = devices

	authCfg := httpapi.AuthConfig{AllowLocalBypass: cfg.Server.AllowLocalBypass}
	if cfg.Server.AuthToken != "" {
		authCfg.APIKeys = map[string]struct{}{cfg.Server.AuthToken: {}}
	}
	a.api = &httpapi.Server{
		Devices:   devices,
		KB:        kb,
		Profiles:  profiles,
		Validator: val,
		Queue:     queue,
		Reports:   reports,
		ReportsDB: reportDB,
		Metrics:   metrics,
		Auth:      authCfg,
	}
	apiHandler := httpapi.New(a.api)

	a.healthHandler = health.New(
		health.NewPostgresChecker("vector_index", vecIndex),
		health.NewPostgresChecker("profile_store", profiles),
		health.NewPostgresChecker("document_store", docs),
		health.NewProviderChecker("llm", llmP),
		health.NewProviderChecker("asr", asrP),
		health.NewProviderChecker("embeddings", providers.Embeddings),
	)

	mux := http.NewServeMux()
	a.healthHandler.Register(mux)
	mux.Handle("/", apiHandler)
	a.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watcher, err := config.NewWatcher(configPath, a.onConfigChange)
	if err != nil {
		return nil, fmt.Errorf("app: start config watcher: %w", err)
	}
	a.watcher = watcher
	go watcher.Start()

	go a.retentionLoop(cfg.Retention)

	return a, nil
}

// onUtterance is the C6→C7 handoff: a finalized Utterance is dispatched onto
// the queue's gpu class since the local transcription adapter is the
// heaviest GPU consumer in the pipeline.
func (a *App) onUtterance(u coretypes.Utterance, pcm []byte) {
	_, err := a.queue.Submit(jobqueue.SubmitInput{
		Class:    coretypes.ResourceGPU,
		Priority: coretypes.PriorityNormal,
		Work: func(ctx context.Context) error {
			return a.transcribeAndExtract(ctx, u, pcm)
		},
	})
	if err != nil {
		slog.Error("submit transcription job", "err", err, "session", u.SessionID, "utterance", u.ID)
	}
}

// onSessionClosed logs terminal session state; sessions themselves are not
// durably persisted beyond their ring buffer and utterances.
func (a *App) onSessionClosed(s coretypes.Session) {
	slog.Info("session closed", "session", s.ID, "device", s.DeviceID, "cause", s.TerminatingCause, "warnings", len(s.Warnings))
}

func (a *App) transcribeAndExtract(ctx context.Context, u coretypes.Utterance, pcm []byte) error {
	a.api.BroadcastUtterance(u.SessionID)

	transcript, err := a.stage.Transcribe(ctx, u, pcm)
	if err != nil {
		slog.Warn("transcription failed", "err", err, "utterance", u.ID)
		return err
	}
	a.api.BroadcastTranscript(u.SessionID, transcript.ID)

	_, err = a.queue.Submit(jobqueue.SubmitInput{
		Class:    coretypes.ResourceLLM,
		Priority: coretypes.PriorityNormal,
		Work: func(ctx context.Context) error {
			return a.extractAndValidate(ctx, *transcript)
		},
	})
	if err != nil {
		slog.Error("submit extraction job", "err", err, "transcript", transcript.ID)
	}
	return nil
}

// extractAndValidate is the C8→C9→C10 chain for one Transcript: extract
// claims, adjudicate the fact-kind ones concurrently, and aggregate the
// result into a retained Report.
func (a *App) extractAndValidate(ctx context.Context, t coretypes.Transcript) error {
	extracted, err := a.extractor.Extract(ctx, t)
	if err != nil {
		slog.Warn("claim extraction failed", "err", err, "transcript", t.ID)
		return err
	}

	validations := make(map[string]*coretypes.Validation)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(validationConcurrency)
	for _, c := range extracted {
		if c.Kind != coretypes.ClaimFact {
			continue
		}
		claim := c
		g.Go(func() error {
			v, err := a.validator.Validate(gctx, claim)
			if err != nil {
				slog.Warn("validation failed", "err", err, "claim", claim.ID)
				return nil
			}
			mu.Lock()
			validations[claim.ID] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	rep := a.reports.Build(ctx, t.ID, extracted, validations, nil)
	if err := a.reportDB.Put(ctx, *rep); err != nil {
		slog.Warn("store report failed", "err", err, "report", rep.ID)
	}
	a.api.BroadcastReport(t.ID, rep.ID)
	return nil
}

// onConfigChange applies the hot-reloadable subset of a config change:
// knowledge base thresholds and validator tuning. Log level, queue and
// retention changes are logged but require a restart to take effect; the
// job queue's semaphores are sized at construction and the retention loop
// keeps the window it was started with.
func (a *App) onConfigChange(diff config.ConfigDiff) {
	if diff.LogLevelChanged {
		slog.Info("log level change requires restart to take effect", "new_level", diff.NewLogLevel)
	}
	if diff.KnowledgeChanged {
		a.cfg.Knowledge = diff.NewKnowledge
		a.kb.UpdateConfig(knowledgebase.Config{
			ChunkSize:       diff.NewKnowledge.ChunkSize,
			ChunkOverlap:    diff.NewKnowledge.ChunkOverlap,
			DefaultTopK:     diff.NewKnowledge.TopK,
			DefaultMinScore: diff.NewKnowledge.MinScore,
		})
		a.validator.UpdateConfig(validator.Config{
			TopK:            diff.NewKnowledge.TopK,
			MinScore:        diff.NewKnowledge.MinScore,
			NoDataThreshold: diff.NewKnowledge.NoDataThreshold,
			LinkBonus:       a.cfg.Validator.LinkBonus,
			MaxPassages:     a.cfg.Validator.LLMContextBudget,
		})
		slog.Info("applied knowledge base threshold reload")
	}
	if diff.ValidatorChanged {
		a.cfg.Validator = diff.NewValidator
		a.validator.UpdateConfig(validator.Config{
			TopK:            a.cfg.Knowledge.TopK,
			MinScore:        a.cfg.Knowledge.MinScore,
			NoDataThreshold: a.cfg.Knowledge.NoDataThreshold,
			LinkBonus:       a.cfg.Validator.LinkBonus,
			MaxPassages:     a.cfg.Validator.LLMContextBudget,
		})
		slog.Info("applied validator threshold reload")
	}
	if diff.QueueChanged {
		slog.Warn("queue configuration changed but requires a restart to take effect")
	}
	if diff.RetentionChanged {
		slog.Info("retention window changed but requires a restart to take effect", "sessions_days", diff.NewRetention.SessionsDays, "reports_days", diff.NewRetention.ReportsDays)
	}
}

// retentionLoop periodically prunes Reports older than the configured
// window. Documents, Chunks, Profiles, and Facts are curated knowledge-base
// state and are never touched here.
func (a *App) retentionLoop(cfg config.RetentionConfig) {
	defer close(a.retentionDone)
	if cfg.ReportsDays <= 0 {
		return
	}
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-a.retentionStop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-time.Duration(a.cfg.Retention.ReportsDays) * 24 * time.Hour)
			n := a.reportDB.PruneOlderThan(context.Background(), cutoff)
			if n > 0 {
				slog.Info("retention sweep pruned reports", "count", n)
			}
		}
	}
}

// Run starts the HTTP/WebSocket listener and blocks until ctx is cancelled
// or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown drains the HTTP server, stops background loops, and closes every
// durable backend connection, in roughly the reverse order they were
// started in New.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if shutdownErr := a.httpSrv.Shutdown(ctx); shutdownErr != nil {
		err = fmt.Errorf("shut down http server: %w", shutdownErr)
	}

	a.watcher.Stop()
	close(a.retentionStop)
	<-a.retentionDone
	a.queue.Close()

	for _, c := range a.closers {
		c.Close()
	}

	if shutdownErr := a.otelShutdown(ctx); shutdownErr != nil && err == nil {
		err = fmt.Errorf("shut down telemetry: %w", shutdownErr)
	}
	return err
}
