package dbus

import (
	"context"
	"errors"
	"time"

	"github.com/godbus/dbus/v5"
)

// DefaultTimeout is the timeout used for all D-Bus calls that carry no deadline.
var DefaultTimeout = 5 * time.Second

// Conn is the slice of a D-Bus connection the backends rely on. Method calls
// return the raw reply body so callers decode it with dbus.Store.
//
//go:generate mockgen -destination=mocks/conn_mock.go -package=mocks github.com/b0bbywan/go-odio-players/backend/internal/dbus Conn
type Conn interface {
	Call(ctx context.Context, dest, path, method string, args ...interface{}) ([]interface{}, error)
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// SessionConn is the godbus-backed Conn for the user session bus.
type SessionConn struct {
	conn *dbus.Conn
}

// ConnectSession opens a private session bus connection.
func ConnectSession() (*SessionConn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &SessionConn{conn: conn}, nil
}

// withDefaultTimeout bounds ctx by DefaultTimeout unless it already has a deadline.
func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}

func (c *SessionConn) Call(ctx context.Context, dest, path, method string, args ...interface{}) ([]interface{}, error) {
	callCtx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	call := c.conn.Object(dest, dbus.ObjectPath(path)).CallWithContext(callCtx, method, 0, args...)
	if call.Err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{}
		}
		return nil, call.Err
	}
	return call.Body, nil
}

func (c *SessionConn) AddMatchSignal(options ...dbus.MatchOption) error {
	return c.conn.AddMatchSignal(options...)
}

func (c *SessionConn) RemoveMatchSignal(options ...dbus.MatchOption) error {
	return c.conn.RemoveMatchSignal(options...)
}

func (c *SessionConn) Signal(ch chan<- *dbus.Signal) {
	c.conn.Signal(ch)
}

func (c *SessionConn) RemoveSignal(ch chan<- *dbus.Signal) {
	c.conn.RemoveSignal(ch)
}

func (c *SessionConn) Close() error {
	return c.conn.Close()
}

// GetProperty retrieves a single property from a D-Bus object.
func GetProperty(ctx context.Context, c Conn, dest, path, iface, prop string) (dbus.Variant, error) {
	body, err := c.Call(ctx, dest, path, PROP_GET, iface, prop)
	if err != nil {
		return dbus.Variant{}, err
	}
	var v dbus.Variant
	if err := dbus.Store(body, &v); err != nil {
		return dbus.Variant{}, err
	}
	return v, nil
}

// SetProperty sets a single property on a D-Bus object.
func SetProperty(ctx context.Context, c Conn, dest, path, iface, prop string, value interface{}) error {
	_, err := c.Call(ctx, dest, path, PROP_SET, iface, prop, dbus.MakeVariant(value))
	return err
}

// GetAllProperties retrieves all properties of a D-Bus interface in a single call.
func GetAllProperties(ctx context.Context, c Conn, dest, path, iface string) (map[string]dbus.Variant, error) {
	body, err := c.Call(ctx, dest, path, PROP_GET_ALL, iface)
	if err != nil {
		return nil, err
	}
	var props map[string]dbus.Variant
	if err := dbus.Store(body, &props); err != nil {
		return nil, err
	}
	if props == nil {
		props = map[string]dbus.Variant{}
	}
	return props, nil
}

// ListNames returns every name currently owned on the bus.
func ListNames(ctx context.Context, c Conn) ([]string, error) {
	body, err := c.Call(ctx, DBUS_INTERFACE, DBUS_PATH, BUS_LIST_NAMES)
	if err != nil {
		return nil, err
	}
	var names []string
	return names, dbus.Store(body, &names)
}

// GetNameOwner resolves a well-known name to its unique connection name.
func GetNameOwner(ctx context.Context, c Conn, name string) (string, error) {
	body, err := c.Call(ctx, DBUS_INTERFACE, DBUS_PATH, BUS_GET_NAME_OWNER, name)
	if err != nil {
		return "", err
	}
	var owner string
	return owner, dbus.Store(body, &owner)
}

// GetConnectionPID returns the process id behind a bus name.
func GetConnectionPID(ctx context.Context, c Conn, name string) (uint32, error) {
	body, err := c.Call(ctx, DBUS_INTERFACE, DBUS_PATH, BUS_GET_CONNECTION_PID, name)
	if err != nil {
		return 0, err
	}
	var pid uint32
	return pid, dbus.Store(body, &pid)
}

// FilterSignal parses a PropertiesChanged D-Bus signal body.
// Returns changed properties, invalidated names and interface name, or an error if malformed.
func FilterSignal(sig *dbus.Signal) (map[string]dbus.Variant, []string, string, error) {
	if sig == nil {
		return nil, nil, "", &SignalError{Reason: "channel closed"}
	}
	if len(sig.Body) < 2 {
		return nil, nil, "", &SignalError{Reason: "body too short"}
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return nil, nil, "", &SignalError{Reason: "failed to parse interface name"}
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, nil, "", &SignalError{Reason: "body[1] is not map[string]Variant"}
	}
	var invalidated []string
	if len(sig.Body) > 2 {
		invalidated, _ = sig.Body[2].([]string)
	}
	return changed, invalidated, iface, nil
}

// ParseNameOwnerChanged extracts name, old owner and new owner from a NameOwnerChanged signal.
func ParseNameOwnerChanged(sig *dbus.Signal) (name, oldOwner, newOwner string, err error) {
	if sig == nil {
		return "", "", "", &SignalError{Reason: "channel closed"}
	}
	if len(sig.Body) < 3 {
		return "", "", "", &SignalError{Reason: "body too short"}
	}
	var ok bool
	if name, ok = sig.Body[0].(string); !ok {
		return "", "", "", &SignalError{Reason: "failed to parse bus name"}
	}
	oldOwner, _ = sig.Body[1].(string)
	newOwner, _ = sig.Body[2].(string)
	return name, oldOwner, newOwner, nil
}

// --- Variant extraction helpers ---

// ExtractString extracts a string from a dbus.Variant.
func ExtractString(v dbus.Variant) (string, bool) {
	val, ok := v.Value().(string)
	return val, ok
}

// ExtractBool extracts a bool from a dbus.Variant.
func ExtractBool(v dbus.Variant) (bool, bool) {
	val, ok := v.Value().(bool)
	return val, ok
}

// ExtractFloat64 extracts a float64 from a dbus.Variant.
func ExtractFloat64(v dbus.Variant) (float64, bool) {
	val, ok := v.Value().(float64)
	return val, ok
}

// ExtractInt64 extracts any D-Bus integer type from a dbus.Variant as int64.
func ExtractInt64(v dbus.Variant) (int64, bool) {
	switch val := v.Value().(type) {
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case int16:
		return int64(val), true
	case uint64:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint16:
		return int64(val), true
	case byte:
		return int64(val), true
	default:
		return 0, false
	}
}

// ExtractObjectPath extracts an object path, accepting plain strings from non-compliant peers.
func ExtractObjectPath(v dbus.Variant) (string, bool) {
	switch val := v.Value().(type) {
	case dbus.ObjectPath:
		return string(val), true
	case string:
		return val, true
	default:
		return "", false
	}
}

// ExtractStringSlice extracts a string array from a dbus.Variant.
func ExtractStringSlice(v dbus.Variant) ([]string, bool) {
	switch val := v.Value().(type) {
	case []string:
		return val, true
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// ExtractVariantMap extracts a map[string]dbus.Variant from a dbus.Variant.
func ExtractVariantMap(v dbus.Variant) (map[string]dbus.Variant, bool) {
	val, ok := v.Value().(map[string]dbus.Variant)
	return val, ok
}

// --- Map helpers (props map[string]dbus.Variant) ---

// MapString extracts a string from a props map by key.
func MapString(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		s, _ := ExtractString(v)
		return s
	}
	return ""
}

// MapBool extracts a bool from a props map by key.
func MapBool(props map[string]dbus.Variant, key string) bool {
	if v, ok := props[key]; ok {
		b, _ := ExtractBool(v)
		return b
	}
	return false
}
