/*
Package worker runs one worker's checkpointed task loop.

Each iteration walks the states FETCHING, DECIDING and WORKING:

	FETCHING  load the persisted record (the load is the recovery step)
	DECIDING  stop when task_count reached the threshold, otherwise ask the
	          FailureInjector whether to crash; a crash drops the in-memory
	          record and goes back to FETCHING without saving
	WORKING   increment task_count, save it, wait WorkDelay, back to FETCHING

A crash can only happen before the save, so committed progress is never rolled
back. Crashes are retried without limit: with a crash probability p < 1 a
worker finishes after threshold/(1-p) iterations on average, but there is no
hard upper bound. Callers that need one should pass a context with a deadline.

Storage failures are not crashes. A save that keeps failing after
Config.SaveAttempts tries, or any load error, ends the worker with that error.
*/
package worker
