// Package app wires contactsift together and owns its lifecycle.
//
// New builds, in order: OpenTelemetry providers, the data file checks, the
// name table, the operation tracer and its pipeline metrics, the keyword
// expander, the artifact store, the services and finally the chi router
// with its middleware chain. Nothing listens until Serve or Run is called.
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run stops on SIGINT or SIGTERM. Stop drains in-flight requests within
// Server.ShutdownTimeout, then closes the artifact store and flushes
// telemetry. Initialization errors are returned to the caller; the package
// never calls os.Exit.
package app
