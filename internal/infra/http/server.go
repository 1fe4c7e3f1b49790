package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"seald/internal/config"
	"seald/internal/domain"
	"seald/internal/infra/anchor"
	"seald/internal/infra/anchor/ledger"
	"seald/internal/infra/anchor/rekor"
	"seald/internal/infra/blob"
	"seald/internal/infra/db"
	"seald/internal/infra/dedup"
	"seald/internal/infra/fingerprint"
	"seald/internal/infra/policyopa"
	"seald/internal/infra/ratelimit"
	"seald/internal/infra/storemem"
	"seald/internal/logging"
	"seald/internal/usecase"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine
	log   logging.Logger

	seal     *usecase.SealService
	verifier *usecase.Verifier
	proofs   *usecase.ProofReader
	eraser   *usecase.Eraser
	sweeper  *usecase.AnchorSweeper

	anchor domain.AnchorClient

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration
}

func NewServer(cfg config.Config, store *db.Store, log logging.Logger) (*Server, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	if log == nil {
		log = logging.Nop{}
	}

	s := &Server{cfg: cfg, store: store, r: r, log: log}
	if err := s.initDeps(); err != nil {
		return nil, err
	}
	s.routes()
	return s, nil
}

type ServerDeps struct {
	Seal        *usecase.SealService
	Verifier    *usecase.Verifier
	Proofs      *usecase.ProofReader
	Eraser      *usecase.Eraser
	Sweeper     *usecase.AnchorSweeper
	Anchor      domain.AnchorClient
	RateLimiter domain.RateLimiter
	Log         logging.Logger
}

// NewServerWithDeps wires a server from pre-built services; tests use it
// to swap in stubs.
func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:      cfg,
		r:        r,
		log:      deps.Log,
		seal:     deps.Seal,
		verifier: deps.Verifier,
		proofs:   deps.Proofs,
		eraser:   deps.Eraser,
		sweeper:  deps.Sweeper,
		anchor:   deps.Anchor,
	}
	if s.log == nil {
		s.log = logging.Nop{}
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() error {
	ctx := context.Background()

	payloads, err := s.buildPayloadStore(ctx)
	if err != nil {
		return err
	}

	var (
		artifacts domain.ArtifactRepository
		conts     domain.ContainerRepository
		events    domain.ProvenanceRepository
		attempts  domain.AnchorAttemptRepository
	)
	if s.store != nil && s.store.DB != nil {
		artifacts = db.NewArtifactRepository(s.store.DB)
		conts = db.NewContainerRepository(s.store.DB)
		events = db.NewProvenanceRepository(s.store.DB)
		attempts = db.NewAnchorAttemptRepository(s.store.DB)
	} else {
		memArtifacts := storemem.NewArtifactRepository()
		artifacts = memArtifacts
		conts = storemem.NewContainerRepository(memArtifacts)
		events = storemem.NewProvenanceRepository()
		attempts = storemem.NewAnchorAttemptRepository()
	}

	provider, err := s.buildAnchorProvider()
	if err != nil {
		return err
	}
	anchorSvc, err := anchor.NewService(provider, attempts, s.log, anchor.ServiceConfig{
		CallTimeout:     s.cfg.AnchorTimeout(),
		MaxAttempts:     s.cfg.AnchorRetryMax,
		BreakerFailures: s.cfg.AnchorBreakerFailures,
		BreakerCooldown: s.cfg.AnchorBreakerCooldown(),
	})
	if err != nil {
		return err
	}
	s.anchor = anchorSvc

	var guard domain.SealGuard
	if s.cfg.RedisAddr != "" {
		guard, err = dedup.NewRedisGuard(dedup.RedisGuardConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
			TTL:      s.cfg.SealGuardTTL(),
		})
		if err != nil {
			return err
		}
	} else {
		guard = dedup.NewMemoryGuard(dedup.MemoryGuardConfig{TTL: s.cfg.SealGuardTTL()})
	}

	var policy domain.AdmissionPolicy
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromPath(ctx, s.cfg.PolicyBundlePath)
		if err != nil {
			return err
		}
		policy = engine
	}

	prints := fingerprint.Engine{}
	s.seal = &usecase.SealService{
		Artifacts:  artifacts,
		Containers: conts,
		Events:     events,
		Payloads:   payloads,
		Anchor:     s.anchor,
		Guard:      guard,
		Policy:     policy,
		Prints:     prints,
		Log:        s.log,
	}
	s.verifier = &usecase.Verifier{
		Artifacts:  artifacts,
		Containers: conts,
		Events:     events,
		Payloads:   payloads,
		Anchor:     s.anchor,
		Prints:     prints,
		Log:        s.log,
	}
	s.proofs = &usecase.ProofReader{Artifacts: artifacts, Events: events}
	s.eraser = &usecase.Eraser{
		Artifacts: artifacts,
		Events:    events,
		Payloads:  payloads,
		Log:       s.log,
	}
	s.sweeper = &usecase.AnchorSweeper{
		Artifacts:  artifacts,
		Containers: conts,
		Events:     events,
		Anchor:     s.anchor,
		Log:        s.log,
		Interval:   s.cfg.SweepInterval(),
		BatchSize:  s.cfg.SweepBatchSize,
	}

	s.initRateLimit(nil)
	return nil
}

func (s *Server) buildAnchorProvider() (anchor.Provider, error) {
	if s.cfg.AnchorProvider == "rekor" {
		signer, err := rekor.NewLocalSigner(s.cfg.AnchorSignSeedHex)
		if err != nil {
			return nil, err
		}
		return rekor.NewClient(s.cfg.AnchorURL, signer, nil)
	}
	return ledger.NewClient(s.cfg.AnchorURL, nil)
}

func (s *Server) buildPayloadStore(ctx context.Context) (domain.PayloadStore, error) {
	if s.cfg.BlobBackend == "s3" {
		return blob.NewS3Store(ctx, blob.S3StoreConfig{
			Bucket:   s.cfg.S3Bucket,
			Region:   s.cfg.S3Region,
			Endpoint: s.cfg.S3Endpoint,
			Prefix:   s.cfg.S3Prefix,
		})
	}
	return blob.NewFSStore(s.cfg.BlobDir)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = s.cfg.RateLimitWindow()
	}
}

// Sweeper exposes the background re-anchor loop for main to run.
func (s *Server) Sweeper() *usecase.AnchorSweeper {
	return s.sweeper
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		anchorHealth := string(domain.AnchorDown)
		if s.anchor != nil {
			anchorHealth = string(s.anchor.Health(c.Request.Context()))
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode, "anchor": anchorHealth})
	})

	v1 := s.r.Group("/v1")
	v1.Use(s.enforceRateLimit)
	{
		v1.POST("/artifacts", s.handleSeal)
		v1.POST("/containers", s.handleSealContainer)
		v1.POST("/artifacts/:id/verify", s.handleVerifyArtifact)
		v1.POST("/containers/:id/verify", s.handleVerifyContainer)
		v1.GET("/artifacts/:id/proof", s.handleProofBundle)
		v1.GET("/artifacts/:id/events", s.handleTrail)
		v1.DELETE("/artifacts/:id", s.handleDelete)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "unknown route")
	})
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}
