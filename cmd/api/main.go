package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mwhitford/skylog/internal/auth"
	"github.com/mwhitford/skylog/internal/config"
	"github.com/mwhitford/skylog/internal/handlers"
	"github.com/mwhitford/skylog/internal/lifecycle"
	"github.com/mwhitford/skylog/internal/media"
	"github.com/mwhitford/skylog/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	// Database connection. TranslateError makes unique-key conflicts
	// detectable as gorm.ErrDuplicatedKey.
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	db := store.NewGorm(gdb)
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	// Object storage client against R2, with a pinned TLS config.
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
		},
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithHTTPClient(&http.Client{Transport: tr}),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Media.AccessKeyID, cfg.Media.AccessKeySecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure object storage")
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.Media.AccountID))
	})
	mediaStore := media.NewS3(s3Client, cfg.Media.Bucket)

	tokens := auth.NewTokens(cfg.JWTKey)
	life := lifecycle.NewManager(db, mediaStore, log)
	h := handlers.New(db, life, mediaStore, tokens, cfg.Media.PublicURL, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Mount("/", h.Routes())

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Msg("starting API server")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
