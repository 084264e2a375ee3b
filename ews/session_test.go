package ews

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"printadmin/logger"
)

// fakeDevice emulates the HP embedded web server surface the session drives:
// sign-in, sign-out, and the print-quality form.
type fakeDevice struct {
	pin         string
	acknowledge bool // emit the success marker on settings submit

	signOuts       int
	qualityGets    int
	lastSubmitted  url.Values
	qualityOptions map[string]string
}

func newFakeDevice(pin string) *fakeDevice {
	return &fakeDevice{
		pin:         pin,
		acknowledge: true,
		qualityOptions: map[string]string{
			"EconoMode":  "Off",
			"Resolution": "600dpi",
			"PaperType":  "Plain",
		},
	}
}

func (d *fakeDevice) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/hp/device/SignIn/Index", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("PasswordTextBox") != d.pin {
			fmt.Fprint(w, "<html><body><h2>Sign In failed</h2></body></html>")
			return
		}
		fmt.Fprint(w, "<html><body><h2>Welcome</h2></body></html>")
	})
	mux.HandleFunc("/hp/device/SignIn/Leave", func(w http.ResponseWriter, r *http.Request) {
		d.signOuts++
		fmt.Fprint(w, "<html><body>Signed out</body></html>")
	})
	mux.HandleFunc("/hp/device/MenuTree/IndexForm", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "PrintQuality" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodPost {
			r.ParseForm()
			d.lastSubmitted = r.PostForm
			if d.acknowledge {
				fmt.Fprint(w, "<html><body><h2>The operation was executed successfully.</h2></body></html>")
			} else {
				fmt.Fprint(w, "<html><body><h2>An error occurred.</h2></body></html>")
			}
			return
		}
		d.qualityGets++
		var b strings.Builder
		b.WriteString("<html><body><form method=\"post\">")
		for name, selected := range d.qualityOptions {
			fmt.Fprintf(&b, "<select name=%q>", name)
			fmt.Fprintf(&b, "<option value=%q selected>%s</option>", selected, selected)
			fmt.Fprintf(&b, "<option value=\"other\">other</option>")
			b.WriteString("</select>")
		}
		b.WriteString("</form></body></html>")
		fmt.Fprint(w, b.String())
	})
	return mux
}

// startDevice runs the fake device behind TLS with a self-signed certificate,
// the same posture as the real hardware.
func startDevice(t *testing.T, d *fakeDevice) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewTLSServer(d.handler())
	t.Cleanup(srv.Close)
	return srv, srv.Listener.Addr().String()
}

func testLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetConsoleOutput(false)
	return log
}

func TestLogInAcceptsCorrectPIN(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	defer session.Close()

	ok, err := session.LogIn("1234")
	if err != nil {
		t.Fatalf("LogIn failed: %v", err)
	}
	if !ok {
		t.Fatal("expected login to be accepted")
	}
}

func TestLogInRejectsWrongPIN(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	defer session.Close()

	ok, err := session.LogIn("wrong")
	if err != nil {
		t.Fatalf("wrong PIN must not be an error, got: %v", err)
	}
	if ok {
		t.Fatal("expected login to be rejected")
	}
	if device.qualityGets != 0 {
		t.Fatal("no settings request may be issued after a rejected login")
	}
}

func TestLogInTransportFailure(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	srv, addr := startDevice(t, device)
	srv.Close()

	session := Open(addr, 2*time.Second, testLogger())
	defer session.Close()

	if _, err := session.LogIn("1234"); err == nil {
		t.Fatal("expected a transport error for an unreachable device")
	}
}

func TestReadQualityOptions(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	defer session.Close()

	if ok, err := session.LogIn("1234"); err != nil || !ok {
		t.Fatalf("login failed: ok=%v err=%v", ok, err)
	}

	options, err := session.ReadQualityOptions()
	if err != nil {
		t.Fatalf("ReadQualityOptions failed: %v", err)
	}
	if len(options) != len(device.qualityOptions) {
		t.Fatalf("read %d fields, want %d: %v", len(options), len(device.qualityOptions), options)
	}
	for name, value := range device.qualityOptions {
		if options[name] != value {
			t.Errorf("field %s = %q, want %q", name, options[name], value)
		}
	}
}

func TestReadQualityOptionsPanicsWithoutLogin(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	defer session.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when reading options without authentication")
		}
	}()
	session.ReadQualityOptions()
}

func TestSetEconomodeRoundTripsFullForm(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	defer session.Close()

	if ok, err := session.LogIn("1234"); err != nil || !ok {
		t.Fatalf("login failed: ok=%v err=%v", ok, err)
	}

	ok, err := session.SetEconomode(EconomodeOn)
	if err != nil {
		t.Fatalf("SetEconomode failed: %v", err)
	}
	if !ok {
		t.Fatal("expected the device to acknowledge the change")
	}

	// The submitted form must be the read mapping with exactly the economode
	// field replaced, plus the confirm button. Anything else would silently
	// reset unrelated device settings.
	submitted := device.lastSubmitted
	if submitted.Get("EconoMode") != EconomodeOn {
		t.Errorf("EconoMode = %q, want %q", submitted.Get("EconoMode"), EconomodeOn)
	}
	if submitted.Get("OKButton") != "OK" {
		t.Errorf("OKButton = %q, want OK", submitted.Get("OKButton"))
	}
	for name, value := range device.qualityOptions {
		if name == "EconoMode" {
			continue
		}
		if submitted.Get(name) != value {
			t.Errorf("unrelated field %s changed to %q, want %q", name, submitted.Get(name), value)
		}
	}
	if len(submitted) != len(device.qualityOptions)+1 {
		t.Errorf("submitted %d fields, want %d", len(submitted), len(device.qualityOptions)+1)
	}
}

func TestSetEconomodeIdempotent(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	defer session.Close()

	if ok, err := session.LogIn("1234"); err != nil || !ok {
		t.Fatalf("login failed: ok=%v err=%v", ok, err)
	}

	for i := 0; i < 2; i++ {
		ok, err := session.SetEconomode(EconomodeOff)
		if err != nil {
			t.Fatalf("SetEconomode attempt %d failed: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("SetEconomode attempt %d not acknowledged", i+1)
		}
	}
}

func TestSetEconomodeReportsMissingAcknowledgement(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	device.acknowledge = false
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	defer session.Close()

	if ok, err := session.LogIn("1234"); err != nil || !ok {
		t.Fatalf("login failed: ok=%v err=%v", ok, err)
	}

	ok, err := session.SetEconomode(EconomodeOn)
	if err != nil {
		t.Fatalf("a rejected change must not be an error, got: %v", err)
	}
	if ok {
		t.Fatal("expected missing success marker to report false")
	}
}

func TestSetEconomodeRejectsInvalidState(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	defer session.Close()

	if ok, err := session.LogIn("1234"); err != nil || !ok {
		t.Fatalf("login failed: ok=%v err=%v", ok, err)
	}

	if _, err := session.SetEconomode("Maybe"); err == nil {
		t.Fatal("expected error for invalid economode state")
	}
}

func TestCloseSignsOutOnce(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	if ok, err := session.LogIn("1234"); err != nil || !ok {
		t.Fatalf("login failed: ok=%v err=%v", ok, err)
	}

	session.Close()
	session.Close() // second close is a no-op

	if device.signOuts != 1 {
		t.Fatalf("expected exactly one sign-out request, got %d", device.signOuts)
	}
}

func TestCloseWithoutLoginSkipsSignOut(t *testing.T) {
	t.Parallel()

	device := newFakeDevice("1234")
	_, addr := startDevice(t, device)

	session := Open(addr, 5*time.Second, testLogger())
	session.Close()

	if device.signOuts != 0 {
		t.Fatalf("unauthenticated close must not sign out, got %d requests", device.signOuts)
	}
}
