// Package logger wraps zerolog behind a small interface shared by every crawler component.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Crawl started", map[string]interface{}{"tag": "sunset"})
//
// Console output is colored and compact; setting logging.file sends JSON lines to
// that file in addition to the console. Tests use NewNopLogger or NewTestLogger.
package logger
