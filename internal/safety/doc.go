// Package safety implements the independent safety layer: the liveness
// watchdog (heartbeat emitter plus task-alive deadline check) and the sensor
// plausibility monitor with its idempotent emergency halt.
package safety
