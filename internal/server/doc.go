// Package server hosts the player page on a loopback address and bridges its widget to the Go process.
//
// # Routes
//
//	GET /        embed page (IFrame API script tag and mount node)
//	GET /health  liveness probe
//	GET /ws      websocket carrying widget reports and commands
//
// # Bridge Protocol
//
// Messages are JSON objects with a "type" field.
//
// The page sends script_ready, mount_ready, ready, state and error. state and error carry the widget's numeric
// code in "data".
//
// The host sends create (mountId, config), load (videoId), play and pause.
//
// [Bridge] implements the player's widget factory. Only the most recent page connection is live; an older one is
// closed when a new one attaches. A page that reconnects after the widget was constructed is told to create it
// again, and its ready report makes the player reload the current video.
package server
