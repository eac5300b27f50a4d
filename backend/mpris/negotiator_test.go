package mpris

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/mock/gomock"

	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-players/backend/internal/dbus/mocks"
)

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name          string
		edit          func(fp *fakePlayer)
		wantTrackList bool
		wantPlaylists bool
		wantMatches   int
	}{
		{
			name:        "mandatory only",
			wantMatches: 2,
		},
		{
			name: "all interfaces",
			edit: func(fp *fakePlayer) {
				fp.withTrackList(track1).withPlaylists(PlaylistEntry{ID: playlistA, Title: "A"})
			},
			wantTrackList: true,
			wantPlaylists: true,
			wantMatches:   6,
		},
		{
			name: "optional failure tolerated",
			edit: func(fp *fakePlayer) {
				fp.withTrackList(track1)
				fp.getAllErr[MPRIS_TRACKLIST_IFACE] = dbus.NewError(idbus.ERR_NO_REPLY, nil)
			},
			wantMatches: 2,
		},
		{
			name: "empty optional interface dropped",
			edit: func(fp *fakePlayer) {
				fp.props[MPRIS_PLAYLISTS_IFACE] = map[string]dbus.Variant{}
			},
			wantMatches: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			fp := newFakePlayer(testOwner, "VLC")
			if tt.edit != nil {
				tt.edit(fp)
			}
			conn.add(testBus, fp)

			n, err := negotiate(context.Background(), conn, testBus)
			if err != nil {
				t.Fatalf("negotiate() error = %v", err)
			}
			want := PlayerIdentity{BusName: testBus, ProcessID: 4242, NameOwner: testOwner}
			if n.identity != want {
				t.Errorf("identity = %+v, want %+v", n.identity, want)
			}
			if n.caps.base == nil || n.caps.player == nil {
				t.Fatal("mandatory proxies missing")
			}
			if (n.caps.trackList != nil) != tt.wantTrackList {
				t.Errorf("trackList = %v, want %v", n.caps.trackList != nil, tt.wantTrackList)
			}
			if (n.caps.playlists != nil) != tt.wantPlaylists {
				t.Errorf("playlists = %v, want %v", n.caps.playlists != nil, tt.wantPlaylists)
			}
			if got := conn.activeMatches(); got != tt.wantMatches {
				t.Errorf("active matches = %d, want %d", got, tt.wantMatches)
			}

			n.caps.release()
			n.caps.release()
			if got := conn.activeMatches(); got != 0 {
				t.Errorf("active matches after release = %d", got)
			}
		})
	}
}

func TestNegotiateFailureReleasesEverything(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(conn *fakeConn)
		wantIface string
	}{
		{
			name: "player interface fails",
			setup: func(conn *fakeConn) {
				fp := newFakePlayer(testOwner, "VLC").withTrackList(track1)
				fp.getAllErr[MPRIS_PLAYER_IFACE] = dbus.NewError(idbus.ERR_UNKNOWN_INTERFACE, nil)
				conn.add(testBus, fp)
			},
			wantIface: MPRIS_PLAYER_IFACE,
		},
		{
			name: "base interface fails",
			setup: func(conn *fakeConn) {
				fp := newFakePlayer(testOwner, "VLC")
				delete(fp.props, MPRIS_INTERFACE)
				conn.add(testBus, fp)
			},
			wantIface: MPRIS_INTERFACE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			tt.setup(conn)

			n, err := negotiate(context.Background(), conn, testBus)
			if n != nil {
				t.Fatal("negotiate() returned a result on failure")
			}
			var negErr *NegotiationError
			if !errors.As(err, &negErr) {
				t.Fatalf("error = %v, want NegotiationError", err)
			}
			if negErr.BusName != testBus || negErr.Interface != tt.wantIface {
				t.Errorf("NegotiationError = %+v", negErr)
			}
			if got := conn.activeMatches(); got != 0 {
				t.Errorf("active matches = %d, want 0", got)
			}
		})
	}
}

func TestNegotiateVanishedPlayer(t *testing.T) {
	conn := newFakeConn()

	_, err := negotiate(context.Background(), conn, testBus)
	var negErr *NegotiationError
	if !errors.As(err, &negErr) || !idbus.IsVanished(err) {
		t.Fatalf("error = %v, want vanished NegotiationError", err)
	}
	if got := conn.activeMatches(); got != 0 {
		t.Errorf("active matches = %d, want 0", got)
	}
}

func TestNegotiateCancelled(t *testing.T) {
	conn := newFakeConn()
	conn.add(testBus, newFakePlayer(testOwner, "VLC").withTrackList(track1))
	conn.blockIface = MPRIS_PLAYER_IFACE

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() {
		n, err := negotiate(ctx, conn, testBus)
		if n != nil {
			err = errors.New("unexpected negotiation result")
		}
		errC <- err
	}()

	cancel()
	select {
	case err := <-errC:
		if !idbus.IsCancelled(err) {
			t.Errorf("error = %v, want cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("negotiate() did not return after cancellation")
	}
	if got := conn.activeMatches(); got != 0 {
		t.Errorf("active matches = %d, want 0", got)
	}
}

func TestNegotiateMatchRefused(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mocks.NewMockConn(ctrl)

	conn.EXPECT().AddMatchSignal(gomock.Any()).Return(errors.New("match refused")).AnyTimes()
	conn.EXPECT().RemoveMatchSignal(gomock.Any()).Times(0)
	conn.EXPECT().
		Call(gomock.Any(), idbus.DBUS_INTERFACE, idbus.DBUS_PATH, gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, dest, path, method string, args ...interface{}) ([]interface{}, error) {
			if method == idbus.BUS_GET_NAME_OWNER {
				return []interface{}{testOwner}, nil
			}
			return []interface{}{uint32(7)}, nil
		}).
		AnyTimes()

	_, err := negotiate(context.Background(), conn, testBus)
	var negErr *NegotiationError
	if !errors.As(err, &negErr) {
		t.Fatalf("error = %v, want NegotiationError", err)
	}
}
