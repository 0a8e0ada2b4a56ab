// Package sessionsdk is a Go client for the session core's status surface.
//
// It exposes the liveness and readiness probes, the read-only session
// snapshot and the signed-in user's capabilities. The types in this
// package are also the server's wire format.
//
// Basic usage:
//
//	client := sessionsdk.NewSDKClient("http://localhost:8080")
//
//	snap, err := client.GetSession(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !snap.IsAuthenticated {
//		// show the login screen
//	}
//
// Protected calls fail with *APIError. Use IsPending to tell a session that
// is still running its startup check apart from one that is signed out:
//
//	caps, err := client.GetCapabilities(ctx)
//	switch {
//	case sessionsdk.IsPending(err):
//		// retry after a short delay
//	case sessionsdk.IsUnauthenticated(err):
//		// redirect to login
//	}
package sessionsdk
