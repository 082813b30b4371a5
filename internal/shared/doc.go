// Package shared holds helpers used by more than one package.
//
// The testutil subpackage captures slog records in tests:
//
//	logger, logs := testutil.NewTestLogger(t)
//	svc := services.NewSiftService(cfg, deps, logger)
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelInfo, "sift run finished")
package shared
