package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/emerjence/billctl/pkg/api"
)

type fakeSession struct {
	identity string
	auth     bool
	epoch    uint64
}

func (f *fakeSession) Identity() string    { return f.identity }
func (f *fakeSession) Authenticated() bool { return f.auth }
func (f *fakeSession) Epoch() uint64       { return f.epoch }

type fakeRemote struct {
	setKeyCalls int
	lastKey     string
	setResult   api.SetKeyResult
	setErr      error

	removeCalls int
	removeErr   error

	statusCalls int
	status      api.KeyStatus
	statusErr   error

	// beforeSetReturn runs while SetKey is "in flight".
	beforeSetReturn func()
}

func (f *fakeRemote) SetKey(ctx context.Context, username, key string) (api.SetKeyResult, error) {
	f.setKeyCalls++
	f.lastKey = key
	if f.beforeSetReturn != nil {
		f.beforeSetReturn()
	}
	return f.setResult, f.setErr
}

func (f *fakeRemote) RemoveKey(ctx context.Context, username string) error {
	f.removeCalls++
	return f.removeErr
}

func (f *fakeRemote) KeyStatus(ctx context.Context, username string) (api.KeyStatus, error) {
	f.statusCalls++
	return f.status, f.statusErr
}

func TestSetKeyValidatesLocally(t *testing.T) {
	remote := &fakeRemote{}
	m := NewManager(remote, &fakeSession{identity: "ana", auth: true})

	cases := []struct {
		key  string
		want error
	}{
		{"", ErrEmptyKey},
		{"   ", ErrEmptyKey},
		{"pk-12345", ErrInvalidKeyFormat},
		{"12345", ErrInvalidKeyFormat},
	}
	for _, tc := range cases {
		if _, err := m.SetKey(context.Background(), tc.key); !errors.Is(err, tc.want) {
			t.Errorf("SetKey(%q) = %v, want %v", tc.key, err, tc.want)
		}
	}
	if remote.setKeyCalls != 0 {
		t.Errorf("remote SetKey called %d times for invalid input, want 0", remote.setKeyCalls)
	}
}

func TestSetKeyRequiresSession(t *testing.T) {
	remote := &fakeRemote{}
	m := NewManager(remote, &fakeSession{})
	if _, err := m.SetKey(context.Background(), "sk-valid"); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("SetKey = %v, want ErrNotSignedIn", err)
	}
	if remote.setKeyCalls != 0 {
		t.Error("remote called without a session")
	}
}

func TestSetKeyForwardsUnchangedAndRefreshes(t *testing.T) {
	remote := &fakeRemote{
		setResult: api.SetKeyResult{IsNewUser: true},
		status:    api.KeyStatus{Exists: true, HasAPIKey: true, UsingCustomKey: true},
	}
	m := NewManager(remote, &fakeSession{identity: "ana", auth: true})

	const key = "sk-proj-abc123"
	signedUp, err := m.SetKey(context.Background(), key)
	if err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if !signedUp {
		t.Error("signedUp = false, want true for first association")
	}
	if remote.lastKey != key {
		t.Errorf("forwarded key = %q, want unchanged %q", remote.lastKey, key)
	}
	if remote.statusCalls != 1 {
		t.Errorf("status refresh calls = %d, want 1", remote.statusCalls)
	}
	if got := m.Status(); !got.Present || got.Origin != OriginCustom {
		t.Errorf("Status = %+v, want present custom", got)
	}
}

func TestSetKeyRemoteRejectionLeavesStateUntouched(t *testing.T) {
	remote := &fakeRemote{setErr: &api.RemoteError{Status: 400, Detail: "invalid API key"}}
	m := NewManager(remote, &fakeSession{identity: "ana", auth: true})

	_, err := m.SetKey(context.Background(), "sk-rejected")
	var re *api.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RemoteError", err)
	}
	if got := m.Status(); got.Present || got.Origin != OriginDefault {
		t.Errorf("Status = %+v, want untouched default", got)
	}
	if remote.statusCalls != 0 {
		t.Error("refresh ran after a rejected set")
	}
}

func TestSetKeySurvivesRefreshFailure(t *testing.T) {
	// The set succeeded; a failed follow-up refresh must not roll it back.
	remote := &fakeRemote{statusErr: errors.New("timeout")}
	m := NewManager(remote, &fakeSession{identity: "ana", auth: true})

	if _, err := m.SetKey(context.Background(), "sk-ok"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if got := m.Status(); !got.Present || got.Origin != OriginCustom {
		t.Errorf("Status = %+v, want present custom despite refresh failure", got)
	}
}

func TestRemoveKeyAlwaysRefreshes(t *testing.T) {
	remote := &fakeRemote{
		removeErr: &api.RemoteError{Status: 500, Detail: "storage error"},
		status:    api.KeyStatus{Exists: true, HasAPIKey: true, UsingCustomKey: true},
	}
	m := NewManager(remote, &fakeSession{identity: "ana", auth: true})

	err := m.RemoveKey(context.Background())
	if err == nil {
		t.Fatal("RemoveKey = nil, want the remote error")
	}
	if remote.statusCalls != 1 {
		t.Errorf("status calls = %d, want refresh even on failure", remote.statusCalls)
	}
	// Local state tracks what the backend reported, not the failed intent.
	if got := m.Status(); !got.Present || got.Origin != OriginCustom {
		t.Errorf("Status = %+v, want backend truth", got)
	}
}

func TestStaleSetKeyResponseDiscarded(t *testing.T) {
	sess := &fakeSession{identity: "ana", auth: true}
	remote := &fakeRemote{setResult: api.SetKeyResult{IsNewUser: true}}
	m := NewManager(remote, sess)

	// The session ends while the request is in flight.
	remote.beforeSetReturn = func() { sess.epoch++ }

	signedUp, err := m.SetKey(context.Background(), "sk-late")
	if err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if signedUp {
		t.Error("stale response reported signup")
	}
	if got := m.Status(); got.Present {
		t.Errorf("Status = %+v, want untouched after stale response", got)
	}
}

func TestApplyStatusAndReset(t *testing.T) {
	m := NewManager(&fakeRemote{}, &fakeSession{identity: "ana", auth: true})

	m.ApplyStatus(api.KeyStatus{Exists: true, HasAPIKey: true, UsingCustomKey: true})
	if got := m.Status(); !got.Present || got.Origin != OriginCustom {
		t.Errorf("Status = %+v after ApplyStatus", got)
	}

	m.Reset()
	if got := m.Status(); got.Present || got.Origin != OriginDefault {
		t.Errorf("Status = %+v after Reset, want default", got)
	}
}
