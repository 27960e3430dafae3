// Package wrengo provides a Go client library for interacting with the Wren API.
//
// The client handles authentication (login, token refresh, logout), attaches
// auth state to every request, and coordinates recovery from authentication
// failures: when a request comes back 401, a single shared session
// verification decides whether the session is actually gone before any
// teardown or redirect happens. Concurrent 401s never trigger more than one
// verification at a time.
//
// # Basic Usage
//
//	client := wrengo.NewClient("https://api.wren.localhost")
//
//	// Initialize client (attempts to refresh existing tokens)
//	if err := client.Initialize(context.Background()); err != nil {
//		log.Printf("Warning: %v", err)
//	}
//
//	// Login with credentials
//	if err := client.Login(context.Background(), "username", "password"); err != nil {
//		log.Fatal(err)
//	}
//
//	// Enable re-authentication coordination
//	client.EnableReauth(wrengo.ReauthConfig{
//		Navigate: func(path string) { fmt.Println("redirect to", path) },
//	})
//
// # Configuration Options
//
// The client can be configured with various options:
//
//	client := wrengo.NewClient("https://api.wren.localhost",
//		wrengo.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
//		wrengo.WithRefreshTokenPath("/custom/path/token"),
//	)
//
// # Error Handling
//
// Any failure value can be normalized into an ErrorRecord for display or
// state management:
//
//	rec := wrengo.Classify(err)
//	if rec.IsAuthError() {
//		log.Println("Session expired")
//	}
//	fmt.Println(rec.UserMessage())
//
// The client's own errors are structured by category:
//
//	if err := client.Login(ctx, username, password); err != nil {
//		if wrengo.IsAuthenticationError(err) {
//			log.Println("Invalid credentials")
//		} else if wrengo.IsNetworkError(err) {
//			log.Println("Network connectivity issue")
//		}
//	}
//
// # Thread Safety
//
// The client is designed to be thread-safe and can be used concurrently from
// multiple goroutines. Access tokens and the re-authentication guard are
// protected by internal synchronization.
package wrengo
