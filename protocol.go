package main

import (
	"encoding/json"

	"autopilot/pilot"
)

// Client -> Server message types
const (
	MsgAuth    = "auth"    // present an operator token
	MsgControl = "control" // pause, resume or reset the simulation
	MsgPing    = "ping"
)

// Server -> Client message types
const (
	MsgWelcome = "welcome"
	MsgAuthOK  = "auth_ok"
	MsgEvent   = "event"
	MsgError   = "error"
	MsgPong    = "pong"
)

// Control operations
const (
	OpPause  = "pause"
	OpResume = "resume"
	OpReset  = "reset"
)

// Event kinds
const (
	EventCrash  = "crash"
	EventReset  = "reset"
	EventPause  = "pause"
	EventResume = "resume"
)

// Envelope wraps all outgoing text messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D stays raw until the type is known
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// AuthMsg carries a token from /api/login
type AuthMsg struct {
	Token string `json:"token"`
}

// ControlMsg asks the server to change the simulation's run state
type ControlMsg struct {
	Op string `json:"op"`
}

// ShipState is the live ship in a frame
type ShipState struct {
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
	VX    float64 `json:"vx" msgpack:"vx"`
	VY    float64 `json:"vy" msgpack:"vy"`
	R     float64 `json:"r" msgpack:"r"`
	Theta float64 `json:"th" msgpack:"th"`
	Alive bool    `json:"a" msgpack:"a"`
}

// RockState is one asteroid in a frame
type RockState struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	R float64 `json:"r" msgpack:"r"`
}

// TrailState is one candidate rollout, flattened as x0,y0,x1,y1,...
type TrailState struct {
	Alive bool      `json:"a" msgpack:"a"`
	XY    []float32 `json:"xy" msgpack:"xy"`
}

// FrameState is the binary frame broadcast to spectators
type FrameState struct {
	Tick    uint64            `json:"tick" msgpack:"tick"`
	Episode string            `json:"ep" msgpack:"ep"`
	Variant string            `json:"v" msgpack:"v"`
	Arena   pilot.Arena       `json:"arena" msgpack:"arena"`
	Ship    ShipState         `json:"s" msgpack:"s"`
	Rocks   []RockState       `json:"rk" msgpack:"rk"`
	Trails  []TrailState      `json:"tr" msgpack:"tr"`
	Control pilot.Control     `json:"c" msgpack:"c"`
	Search  pilot.SearchStats `json:"st" msgpack:"st"`
	Crashes int               `json:"cr" msgpack:"cr"`
	Paused  bool              `json:"p,omitempty" msgpack:"p,omitempty"`
}

// WelcomeMsg is sent to a spectator when they connect
type WelcomeMsg struct {
	ID       string      `json:"id"`
	Variant  string      `json:"v"`
	Arena    pilot.Arena `json:"arena"`
	TickRate int         `json:"rate"`
	Control  bool        `json:"ctl"` // operator login is available
}

// EventMsg notifies spectators of something worth showing
type EventMsg struct {
	Kind    string `json:"k"`
	Episode string `json:"ep"`
	Tick    uint64 `json:"tick"`
	Crashes int    `json:"cr,omitempty"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Passphrase string `json:"passphrase"`
}

// LoginResponse returns an operator token
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"exp"`
}

// GameStats is the live summary served by /api/stats
type GameStats struct {
	Episode     string            `json:"episode"`
	Variant     string            `json:"variant"`
	Tick        uint64            `json:"tick"`
	Paused      bool              `json:"paused"`
	Rocks       int               `json:"rocks"`
	Frames      uint64            `json:"frames"`
	Crashes     int               `json:"crashes"`
	CrashFrames uint64            `json:"crash_frames"`
	BestStreak  uint64            `json:"best_streak"`
	Uptime      float64           `json:"uptime_s"`
	LastSearch  pilot.SearchStats `json:"last_search"`
}

// StatsResponse is the body of GET /api/stats
type StatsResponse struct {
	Game       GameStats         `json:"game"`
	Telemetry  TelemetrySnapshot `json:"telemetry"`
	Spectators int               `json:"spectators"`
}
