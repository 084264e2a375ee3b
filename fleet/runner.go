// Package fleet drives a settings change across every configured printer,
// one device at a time, tolerating per-device failures.
package fleet

import (
	"fmt"
	"io"
	"os"
	"time"

	"printadmin/ews"
	"printadmin/logger"
)

// Outcome classifies the result of one device's interaction.
type Outcome int

const (
	Success Outcome = iota
	AuthFailure
	OperationFailure
	TransportFailure
)

var outcomeNames = map[Outcome]string{
	Success:          "success",
	AuthFailure:      "auth-failure",
	OperationFailure: "operation-failure",
	TransportFailure: "transport-failure",
}

func (o Outcome) String() string {
	return outcomeNames[o]
}

// DeviceResult is the recorded outcome for one device.
type DeviceResult struct {
	Device  string
	Outcome Outcome
	Detail  string
}

// DeviceSession is the per-device surface the runner drives. ews.Session
// satisfies it; tests substitute fakes.
type DeviceSession interface {
	LogIn(secret string) (bool, error)
	SetEconomode(state string) (bool, error)
	Close()
}

// Runner applies an economode change across a fleet.
type Runner struct {
	// NewSession opens a session to one device. Exactly one session exists
	// per device and it is torn down before the next device is attempted.
	NewSession func(address string) DeviceSession
	Out        io.Writer
	Log        *logger.Logger
}

// NewRunner builds a runner backed by real EWS sessions.
func NewRunner(timeout time.Duration, log *logger.Logger) *Runner {
	return &Runner{
		NewSession: func(address string) DeviceSession {
			return ews.Open(address, timeout, log)
		},
		Out: os.Stdout,
		Log: log,
	}
}

// Run applies the desired economode state (ews.EconomodeOn or EconomodeOff)
// to every device in order. The secret is the fleet-wide administrator PIN:
// a rejection on any device halts the whole run, since the same PIN would be
// rejected everywhere. Transport and operation failures are recorded per
// device and the loop continues. Returns the per-device results and whether
// every attempted device succeeded.
func (r *Runner) Run(state string, devices []string, secret string) ([]DeviceResult, bool) {
	results := make([]DeviceResult, 0, len(devices))
	ok := true

	for _, device := range devices {
		result := r.runDevice(state, device, secret)
		results = append(results, result)

		if result.Outcome == AuthFailure {
			fmt.Fprintf(r.Out, "Authentication failed: the administrator PIN was rejected by %s\n", device)
			r.Log.Error("run halted: administrator PIN rejected", "device", device)
			return results, false
		}

		line := fmt.Sprintf("Setting economode to %s for %s... ", state, device)
		if result.Outcome == Success {
			line += "OK"
		} else {
			line += "Failure"
			if result.Detail != "" {
				line += " (" + result.Detail + ")"
			}
			ok = false
		}
		fmt.Fprintln(r.Out, line)
		r.Log.Info("device processed", "device", device, "outcome", result.Outcome.String())
	}

	return results, ok
}

// runDevice performs the full interaction with one device. The session is
// torn down on every exit path, including panics from misuse.
func (r *Runner) runDevice(state, device, secret string) DeviceResult {
	session := r.NewSession(device)
	defer session.Close()

	authed, err := session.LogIn(secret)
	if err != nil {
		r.Log.Warn("device unreachable", "device", device, "error", err.Error())
		return DeviceResult{Device: device, Outcome: TransportFailure, Detail: err.Error()}
	}
	if !authed {
		return DeviceResult{Device: device, Outcome: AuthFailure}
	}

	applied, err := session.SetEconomode(state)
	if err != nil {
		r.Log.Warn("settings exchange failed", "device", device, "error", err.Error())
		return DeviceResult{Device: device, Outcome: TransportFailure, Detail: err.Error()}
	}
	if !applied {
		return DeviceResult{Device: device, Outcome: OperationFailure, Detail: "device did not acknowledge the change"}
	}
	return DeviceResult{Device: device, Outcome: Success}
}
