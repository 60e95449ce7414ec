package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/mailer"
	"storefront/internal/models"
	"storefront/internal/payments"
	"storefront/internal/repository"
)

type application struct {
	errorLog    *log.Logger
	infoLog     *log.Logger
	env         string
	frontendURL string
	publicURL   string
	session     *scs.SessionManager
	tokens      *auth.TokenIssuer
	validate    *validator.Validate
	users       userStore
	products    productStore
	orders      orderStore
	coupons     couponStore
	reviews     reviewStore
	payments    payments.Processor
	mailer      mailer.Mailer
	now         func() time.Time
}

func main() {
	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		errorLog.Fatal(err)
	}

	addr := flag.String("addr", cfg.Server.Addr, "HTTP network address")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := models.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		errorLog.Fatal(err)
	}
	defer db.Close(context.Background())
	infoLog.Println("Connected to MongoDB!")

	if err := db.EnsureIndexes(ctx); err != nil {
		errorLog.Fatal(err)
	}

	session := scs.New()
	session.Lifetime = cfg.Auth.CookieExpire
	session.Cookie.HttpOnly = true
	session.Cookie.SameSite = http.SameSiteLaxMode
	session.Cookie.Secure = cfg.Env == "production"

	app := &application{
		errorLog:    errorLog,
		infoLog:     infoLog,
		env:         cfg.Env,
		frontendURL: cfg.Server.FrontendURL,
		publicURL:   cfg.Server.PublicURL,
		session:     session,
		tokens:      auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpire),
		validate:    newValidator(),
		users:       &repository.UserRepository{Collection: db.Users},
		products:    &models.ProductModel{Collection: db.Products},
		orders:      &models.OrderModel{Collection: db.Orders},
		coupons:     &models.CouponModel{Collection: db.Coupons},
		reviews:     &models.ReviewModel{Collection: db.Reviews},
		payments: payments.NewStripeProcessor(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret,
			cfg.Stripe.Currency, cfg.Server.PublicURL),
		mailer: &mailer.LogMailer{From: cfg.Mail.From, Logger: infoLog},
		now:    time.Now,
	}

	srv := &http.Server{
		Addr:         *addr,
		ErrorLog:     errorLog,
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		infoLog.Printf("Starting storefront API on %s in %s mode", *addr, cfg.Env)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.runHousekeeping(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		infoLog.Println("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		errorLog.Fatal(err)
	}
}
