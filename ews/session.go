// Package ews drives the embedded web server of an HP printer. The device has
// no management API; its sign-in form and settings pages are the protocol, so
// every endpoint path, form field, and response marker is isolated here.
package ews

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"printadmin/logger"
)

// Economode states accepted by the device form.
const (
	EconomodeOn  = "On"
	EconomodeOff = "Off"
)

const (
	signInPath       = "/hp/device/SignIn/Index"
	signOutPath      = "/hp/device/SignIn/Leave"
	printQualityPath = "/hp/device/MenuTree/IndexForm?id=PrintQuality"

	agentIDField = "agentIdSelect"
	agentIDValue = "hp_EmbeddedPin_v1"
	pinRoleField = "PinDropDown"
	pinRoleValue = "AdminItem"
	pinField     = "PasswordTextBox"

	economodeField = "EconoMode"
	confirmField   = "OKButton"
	confirmValue   = "OK"

	signInFailedMarker = "<h2>Sign In failed</h2>"
	operationOKMarker  = "<h2>The operation was executed successfully.</h2>"
)

// Session is one authenticated interaction with one printer's embedded web
// console. Sessions are never reused across devices.
type Session struct {
	address       string
	baseURL       string
	client        *http.Client
	authenticated bool
	log           *logger.Logger
}

// Open binds a session to a device address (host or host:port). No network
// I/O happens until LogIn. Certificate verification is disabled for this
// device class only: the printers serve self-signed certificates.
func Open(address string, timeout time.Duration, log *logger.Logger) *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		address: address,
		baseURL: "https://" + address,
		log:     log,
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					// #nosec G402 -- InsecureSkipVerify intentionally enabled:
					// network printers commonly use self-signed SSL certificates.
					InsecureSkipVerify: true,
				},
			},
		},
	}
}

// Address returns the device address this session is bound to.
func (s *Session) Address() string {
	return s.address
}

// LogIn submits the administrator PIN to the device sign-in endpoint. A wrong
// PIN is an expected outcome and returns (false, nil); only transport-level
// failures (unreachable host, timeout) return a non-nil error.
func (s *Session) LogIn(secret string) (bool, error) {
	form := url.Values{}
	form.Set(agentIDField, agentIDValue)
	form.Set(pinRoleField, pinRoleValue)
	form.Set(pinField, secret)

	s.log.Debug("EWS sign-in", "device", s.address)
	body, err := s.postForm(signInPath, form)
	if err != nil {
		return false, fmt.Errorf("sign-in request to %s failed: %w", s.address, err)
	}

	if contains(body, signInFailedMarker) {
		s.log.Debug("EWS sign-in rejected", "device", s.address)
		return false, nil
	}

	s.authenticated = true
	s.log.Debug("EWS sign-in accepted", "device", s.address)
	return true, nil
}

// ReadQualityOptions fetches the print-quality configuration page and returns
// the currently selected value of every form control on it. The device resets
// unlisted fields to defaults on submit, so the whole mapping is always read
// fresh and round-tripped. Calling this without a successful LogIn is a
// programming error and panics.
func (s *Session) ReadQualityOptions() (map[string]string, error) {
	s.mustBeAuthenticated("ReadQualityOptions")

	resp, err := s.client.Get(s.baseURL + printQualityPath)
	if err != nil {
		return nil, fmt.Errorf("fetching print-quality page from %s failed: %w", s.address, err)
	}
	defer resp.Body.Close()

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading print-quality page from %s failed: %w", s.address, err)
	}

	options := parseSelectedOptions(string(page))
	s.log.Debug("EWS print-quality options read", "device", s.address, "fields", len(options))
	return options, nil
}

// SetEconomode reads the full print-quality option set, overwrites the
// economode field, and submits the complete form back. state must be
// EconomodeOn or EconomodeOff. Returns whether the device acknowledged the
// change; a missing acknowledgement is not an error.
func (s *Session) SetEconomode(state string) (bool, error) {
	s.mustBeAuthenticated("SetEconomode")

	if state != EconomodeOn && state != EconomodeOff {
		return false, fmt.Errorf("invalid economode state %q", state)
	}

	options, err := s.ReadQualityOptions()
	if err != nil {
		return false, err
	}

	form := url.Values{}
	for name, value := range options {
		form.Set(name, value)
	}
	form.Set(economodeField, state)
	form.Set(confirmField, confirmValue)

	s.log.Debug("EWS submitting print-quality form", "device", s.address, "economode", state, "fields", len(form))
	body, err := s.postForm(printQualityPath, form)
	if err != nil {
		return false, fmt.Errorf("print-quality submit to %s failed: %w", s.address, err)
	}

	return contains(body, operationOKMarker), nil
}

// LogOut signs out of the device. Best-effort: the response is not inspected
// and transport failures are ignored. The session is unauthenticated after
// this call regardless.
func (s *Session) LogOut() {
	if s.authenticated {
		s.log.Debug("EWS sign-out", "device", s.address)
		if resp, err := s.client.Get(s.baseURL + signOutPath); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}
	s.authenticated = false
}

// Close signs out if needed and releases the transport. Safe to defer on
// every exit path; calling it more than once is harmless.
func (s *Session) Close() {
	s.LogOut()
	if t, ok := s.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

func (s *Session) postForm(path string, form url.Values) (string, error) {
	resp, err := s.client.PostForm(s.baseURL+path, form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (s *Session) mustBeAuthenticated(op string) {
	if !s.authenticated {
		panic("ews: " + op + " called without an authenticated session")
	}
}

func contains(body, marker string) bool {
	// Literal substring match: the firmware emits fixed markup for these
	// outcomes and there is nothing more structured to key off.
	return strings.Contains(body, marker)
}
