package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/prior-it/socialauth/config"
	"github.com/prior-it/socialauth/core"
)

type (
	ErrorHandler    func(call *Call, err error)
	NotFoundHandler func(call *Call)
	// StorageFactory returns the provider storage for the browser session of call.
	StorageFactory func(call *Call) (core.Storage, error)
)

type State interface {
	Close(ctx context.Context)
}

type Server[state State] struct {
	mux          *chi.Mux
	http         *http.Server
	state        state
	logger       *slog.Logger
	errorHandler ErrorHandler
	sessionStore sessions.Store
	storage      StorageFactory
	cfg          *config.Config
}

type (
	Handler[state any]    func(call *Call, state state) error
	Middleware[state any] func(call *Call, state state) (context.Context, error)
)

// New creates a new server with the specified state object and configuration.
func New[state State](s state, cfg *config.Config) *Server[state] {
	server := &Server[state]{
		mux:          chi.NewMux(),
		state:        s,
		logger:       slog.Default(),
		errorHandler: DefaultErrorHandler,
		sessionStore: newSessionStore(cfg),
		storage:      SessionStorageFactory,
		cfg:          cfg,
	}

	// Attach default not found handler
	server.WithNotFoundHandler(
		func(call *Call) {
			render.Status(call.Request, http.StatusNotFound)
			render.JSON(
				call.Writer,
				call.Request,
				errorResponse{fmt.Sprintf("page %q not found", call.Path())},
			)
		},
	)

	return server
}

func newSessionStore(cfg *config.Config) sessions.Store {
	authKey := []byte(cfg.App.AuthenticationKey)
	encKey := []byte(cfg.App.EncryptionKey)
	if len(authKey) == 0 || len(encKey) == 0 {
		slog.Warn(
			"APP_AUTHKEY or APP_ENCKEY is not set, sessions will not survive a restart",
		)
		authKey = securecookie.GenerateRandomKey(64) //nolint:mnd
		encKey = securecookie.GenerateRandomKey(32)  //nolint:mnd
	}
	store := sessions.NewCookieStore(authKey, encKey)
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.App.SSL
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// WithErrorHandler replaces DefaultErrorHandler. Groups that were already created keep their error handler.
func (server *Server[state]) WithErrorHandler(errorHandler ErrorHandler) *Server[state] {
	server.errorHandler = errorHandler
	return server
}

func (server *Server[state]) WithNotFoundHandler(notFoundHandler NotFoundHandler) *Server[state] {
	server.mux.NotFound(server.handle(func(call *Call, _ state) error {
		notFoundHandler(call)
		return nil
	}))
	return server
}

func (server *Server[state]) WithLogger(logger *slog.Logger) *Server[state] {
	server.logger = logger
	return server
}

// WithStorageFactory changes where provider tokens are kept. By default they are kept in the session cookie.
func (server *Server[state]) WithStorageFactory(factory StorageFactory) *Server[state] {
	server.storage = factory
	return server
}

func (server *Server[state]) NewCall(w http.ResponseWriter, r *http.Request) *Call {
	return &Call{
		Writer:  w,
		Request: r,
		Cfg:     server.cfg,
		logger:  server.logger,
		store:   server.sessionStore,
		storage: server.storage,
	}
}

func (server *Server[state]) handle(handler Handler[state]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		call := server.NewCall(w, r)
		err := handler(call, server.state)
		if err != nil {
			server.errorHandler(call, err)
		}
		_ = r.Body.Close()
	}
}

// Utility function that converts server middleware to a http handler
func (server *Server[state]) HandlerMiddleware(
	middleware Middleware[state],
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			call := server.NewCall(w, r)
			ctx, err := middleware(call, server.state)
			if err != nil {
				server.errorHandler(call, err)
			} else {
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

func (server *Server[state]) AttachDefaultMiddleware() {
	server.UseStd(
		middleware.Recoverer,
		middleware.RealIP,
		middleware.RequestID,
		HTTPLogger(server.cfg),
	)
	if server.cfg.App.RequestTimeout > 0 {
		server.UseStd(middleware.Timeout(
			time.Duration(server.cfg.App.RequestTimeout) * time.Second,
		))
	}
}

// Start runs the server until the context is cancelled or an interrupt signal is received.
// If no listener is provided, a new TCP listener will be created on the configured host and port.
func (server *Server[state]) Start(ctx context.Context, listener net.Listener) error {
	// Handle OS signals to cancel the context
	ctxServer, stopSignal := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignal()

	host := fmt.Sprintf("%v:%v", server.cfg.App.Host, server.cfg.App.Port)
	if listener != nil {
		host = listener.Addr().String()
	}
	server.http = &http.Server{
		Addr:              host,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd
	}

	errorCh := make(chan error, 1)
	// Run the actual server
	go func() {
		slog.Info("Starting server", "url", server.cfg.BaseURL(), "host", host)
		var err error
		if listener != nil {
			err = server.http.Serve(listener)
		} else {
			err = server.http.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorCh <- err
		}
		close(errorCh)
	}()

	var errServer error

	select {
	case err := <-errorCh:
		errServer = err
	case <-ctxServer.Done():
		slog.Info("Server interrupt received")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(
		context.WithoutCancel(ctx),
		time.Duration(server.cfg.App.ShutdownTimeout)*time.Second,
	)
	defer cancelShutdown()

	server.Shutdown(ctxShutdown)

	return errServer
}

// Shutdown will gracefully release all server resources. You generally don't need to call this manually.
func (server *Server[state]) Shutdown(ctx context.Context) {
	if server.http != nil {
		if err := server.http.Shutdown(ctx); err != nil {
			slog.Error("Could not shut down the http server", "error", err)
		}
	}
	sentryTimeout := max(0, time.Duration(server.cfg.App.ShutdownTimeout-1))
	sentry.Flush(sentryTimeout * time.Second)
	server.state.Close(ctx)
}

// ServeHTTP implements [net/http.Handler].
func (server *Server[state]) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	server.mux.ServeHTTP(writer, request)
}

// UseStd appends a stdlib middleware handler to the middleware stack.
//
// The middleware stack for any server will execute before searching for a matching
// route to a specific handler, which provides opportunity to respond early,
// change the course of the request execution, or set request-scoped values for
// the next Handler.
func (server *Server[state]) UseStd(middlewares ...func(http.Handler) http.Handler) *Server[state] {
	server.mux.Use(middlewares...)
	return server
}

// Use appends a server middleware handler to the middleware stack.
func (server *Server[state]) Use(
	middlewares ...Middleware[state],
) *Server[state] {
	for _, mi := range middlewares {
		server.mux.Use(server.HandlerMiddleware(mi))
	}
	return server
}

// Group attaches another Handler or Router as a subrouter along a routing
// path. It's very useful to split up a large API as many independent routers and
// compose them as a single service. Or to attach an additional set of middleware
// along a group of endpoints, e.g. a subtree of authenticated endpoints.
//
// Note that Group() does NOT return the original server but rather
// a subroute server that only serves routes along the specified Group pattern.
func (server *Server[state]) Group(
	pattern string,
) *Server[state] {
	srv := Server[state](*server) //nolint:unconvert // shallow copy
	srv.mux = chi.NewMux()
	server.mux.Mount(pattern, srv.mux)
	return &srv
}

// Get adds the route `pattern` that matches a GET http method to execute the `handlerFn` HandlerFunc.
func (server *Server[state]) Get(
	pattern string,
	handlerFn func(call *Call, state state) error,
) *Server[state] {
	server.mux.Get(pattern, server.handle(handlerFn))
	return server
}

// Post adds the route `pattern` that matches a POST http method to execute the `handlerFn` http.HandlerFunc.
func (server *Server[state]) Post(
	pattern string,
	handlerFn func(call *Call, state state) error,
) *Server[state] {
	server.mux.Post(pattern, server.handle(handlerFn))
	return server
}

