/*
Package server provides the HTTP server for socialauth.
Handlers take an application-specific state object (used for dependency injection)
and a [Call] object which wraps the current request and response.

Basic example:

	import (
		"context"
		"log"

		"github.com/prior-it/socialauth/config"
		"github.com/prior-it/socialauth/oauth"
		"github.com/prior-it/socialauth/server"
	)

	func main() {
		cfg, err := config.Load(os.DirFS("."))
		if err != nil {
			log.Fatal(err)
		}

		// Create server
		state := state.New(oauth.NewLoginService(cfg.OAuthProviders))
		s := server.New(state, cfg)
		s.AttachDefaultMiddleware()

		// Attach routes
		server.RegisterRoutes(s)
		s.Get("/hello", Hello)

		// Run server
		log.Fatal(s.Start(context.Background(), nil))
	}

	func Hello(call *server.Call, _ *state.State) error {
		call.JSON(map[string]string{"hello": "world"})
		return nil
	}
*/
package server
