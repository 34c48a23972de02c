// Package workflow is the transfer state machine run on the handheld.
//
//	Idle
//	  ScanSource ──────────────► SourceCaptured
//	SourceCaptured
//	  Cancel (waste) ──────────► Idle
//	  ScanDestination ─────────► AwaitingLastDumpAnswer
//	AwaitingLastDumpAnswer
//	  AnswerLastDump(true) ────► AwaitingFinalShipmentAnswer
//	  AnswerLastDump(false) ───► AwaitingLocation
//	AwaitingFinalShipmentAnswer
//	  AnswerFinalShipment ─────► AwaitingLocation
//	AwaitingLocation
//	  Complete: stamp time, locate, then Submitting ──► Idle (submitted or saved offline)
//
// A failed scan returns to Idle and drops the record. Calls made in the
// wrong state, or while another call is in progress, fail with an error of
// kind types.ErrKindState and change nothing.
package workflow
