// Package metrics provides an observability framework for verification runs.
//
// # Design Philosophy
//
// This package implements the Null Object pattern to enable metrics collection
// without requiring explicit nil checks throughout the codebase. By default,
// all components use NoopRecorder which implements the Recorder interface with
// no-op methods that inline to nothing at compile time.
//
// # Usage Pattern
//
// Components receive a Recorder through dependency injection:
//
//	type Service struct {
//	    recorder metrics.Recorder
//	}
//
//	func NewService() *Service {
//	    return &Service{
//	        recorder: metrics.NoopRecorder{}, // Default: no metrics
//	    }
//	}
//
// To enable metrics, swap NoopRecorder for a real implementation:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	service := NewService().WithRecorder(recorder)
//
// This approach allows zero overhead when metrics are disabled, activation
// without code changes, and clean testing with a mock recorder.
package metrics
