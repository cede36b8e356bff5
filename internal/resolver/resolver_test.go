package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/leaguemodel/internal/adapters/objectstore"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/probe"
)

// downStore fails every call, like an object store with bad credentials.
type downStore struct{ err error }

func (d downStore) Exists(context.Context, string) (bool, error)        { return false, d.err }
func (d downStore) Open(context.Context, string) (io.ReadCloser, error) { return nil, d.err }

// gatedStore holds the first existence check until release is closed.
type gatedStore struct {
	objectstore.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore(inner objectstore.Store) *gatedStore {
	return &gatedStore{Store: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) Exists(ctx context.Context, key string) (bool, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return g.Store.Exists(ctx, key)
}

type fixture struct {
	root      string
	primary   string
	secondary string
	cache     string
	prober    *probe.Prober
}

func newFixture(t *testing.T) fixture {
	root := t.TempDir()
	f := fixture{
		root:      root,
		primary:   filepath.Join(root, "models"),
		secondary: filepath.Join(root, "models", "artifacts"),
		cache:     filepath.Join(root, "cache"),
	}
	f.prober = probe.New(f.primary, f.secondary)
	return f
}

func writeFile(path, content string) {
	So(os.MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
	So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	So(err, ShouldBeNil)
	return string(data)
}

func TestResolveRemote(t *testing.T) {
	Convey("Given a remote tier holding the current-scheme artifact", t, func() {
		f := newFixture(t)
		remote := objectstore.NewMemoryStore()
		So(remote.Put(context.Background(), "models/artifacts_optimized/league_4414_model_optimized.pkl", []byte("remote-blob")), ShouldBeNil)
		writeFile(filepath.Join(f.primary, "league_4414_model_optimized.pkl"), "local-blob")
		r := New(f.prober, WithRemote(remote), WithCacheDir(f.cache))
		ctx := context.Background()
		id := league.MustParse("4414")

		Convey("When resolving", func() {
			res, err := r.Locate(ctx, id)

			Convey("Then the remote copy wins and local tiers are not consulted", func() {
				So(err, ShouldBeNil)
				So(res.Remote(), ShouldBeTrue)
				So(res.Candidate.Key, ShouldEqual, "models/artifacts_optimized/league_4414_model_optimized.pkl")
				So(readFile(res.Path), ShouldEqual, "remote-blob")
				So(res.Size, ShouldEqual, int64(len("remote-blob")))
				So(res.Digest.Validate(), ShouldBeNil)
			})

			Convey("Then the cached file is named by league and content digest", func() {
				So(filepath.Dir(res.Path), ShouldEqual, filepath.Join(f.cache, "league_4414"))
				So(filepath.Base(res.Path), ShouldEqual, res.Digest.Encoded()+".pkl")
			})

			Convey("Then repeated resolutions are byte-identical", func() {
				again, err := r.Resolve(ctx, id)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, res.Path)
				So(readFile(again), ShouldEqual, "remote-blob")

				entries, err := os.ReadDir(filepath.Dir(res.Path))
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
			})
		})

		Convey("When the remote artifact is replaced", func() {
			first, err := r.Resolve(ctx, id)
			So(err, ShouldBeNil)
			So(remote.Put(context.Background(), "models/artifacts_optimized/league_4414_model_optimized.pkl", []byte("retrained-blob")), ShouldBeNil)
			second, err := r.Resolve(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then the new content gets its own cache entry", func() {
				So(second, ShouldNotEqual, first)
				So(readFile(first), ShouldEqual, "remote-blob")
				So(readFile(second), ShouldEqual, "retrained-blob")
			})
		})
	})
}

func TestResolveLocal(t *testing.T) {
	Convey("Given the remote tier is disabled", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		id := league.MustParse("5069")

		Convey("When only the legacy artifact exists in the secondary directory", func() {
			legacy := filepath.Join(f.secondary, "league_5069_model.pkl")
			writeFile(legacy, "legacy-blob")
			r := New(f.prober, WithCacheDir(f.cache))

			path, err := r.Resolve(ctx, id)

			Convey("Then the legacy path is returned", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, legacy)
				So(readFile(path), ShouldEqual, "legacy-blob")
			})
		})

		Convey("When both directories hold the current scheme", func() {
			writeFile(filepath.Join(f.primary, "league_5069_model_optimized.pkl"), "primary")
			writeFile(filepath.Join(f.secondary, "league_5069_model_optimized.pkl"), "secondary")
			r := New(f.prober)

			path, err := r.Resolve(ctx, id)

			Convey("Then the primary directory wins", func() {
				So(err, ShouldBeNil)
				So(readFile(path), ShouldEqual, "primary")
			})
		})

		Convey("When a candidate path is a directory", func() {
			So(os.MkdirAll(filepath.Join(f.primary, "league_5069_model_optimized.pkl"), 0o755), ShouldBeNil)
			writeFile(filepath.Join(f.primary, "league_5069_model.pkl"), "legacy-primary")
			r := New(f.prober)

			path, err := r.Resolve(ctx, id)

			Convey("Then it is skipped", func() {
				So(err, ShouldBeNil)
				So(readFile(path), ShouldEqual, "legacy-primary")
			})
		})
	})
}

func TestResolveNotFound(t *testing.T) {
	Convey("Given no artifact anywhere", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		id := league.MustParse("4414")

		for _, remoteEnabled := range []bool{true, false} {
			remoteEnabled := remoteEnabled
			Convey(fmt.Sprintf("When the remote tier enabled=%v", remoteEnabled), func() {
				opts := []Option{WithCacheDir(f.cache)}
				if remoteEnabled {
					opts = append(opts, WithRemote(objectstore.NewMemoryStore()))
				}
				r := New(f.prober, opts...)

				_, err := r.Resolve(ctx, id)

				Convey("Then NotFound carries exactly the prober's candidate list", func() {
					So(errors.Is(err, ErrNotFound), ShouldBeTrue)
					var nf *NotFoundError
					So(errors.As(err, &nf), ShouldBeTrue)
					So(nf.Checked, ShouldResemble, f.prober.Candidates(id, remoteEnabled))
					So(nf.RemoteErr, ShouldBeNil)
					So(err.Error(), ShouldContainSubstring, "league_4414_model.pkl")
				})
			})
		}
	})
}

func TestResolveRemoteUnavailable(t *testing.T) {
	Convey("Given a remote tier that rejects every call", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		id := league.MustParse("4414")
		down := downStore{err: fmt.Errorf("%w: status 403", objectstore.ErrUnauthorized)}
		r := New(f.prober, WithRemote(down), WithCacheDir(f.cache))

		Convey("When a local artifact exists", func() {
			writeFile(filepath.Join(f.secondary, "league_4414_model_optimized.pkl"), "local")

			path, err := r.Resolve(ctx, id)

			Convey("Then resolution falls back to the local tier", func() {
				So(err, ShouldBeNil)
				So(readFile(path), ShouldEqual, "local")
			})
		})

		Convey("When nothing exists locally", func() {
			_, err := r.Resolve(ctx, id)

			Convey("Then NotFound records the remote failure", func() {
				var nf *NotFoundError
				So(errors.As(err, &nf), ShouldBeTrue)
				So(nf.Checked, ShouldResemble, f.prober.Candidates(id, true))
				So(errors.Is(nf.RemoteErr, ErrRemoteUnavailable), ShouldBeTrue)
				So(errors.Is(nf.RemoteErr, objectstore.ErrUnauthorized), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "remote skipped")
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		f := newFixture(t)
		r := New(f.prober, WithRemote(objectstore.NewMemoryStore()))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := r.Resolve(ctx, league.MustParse("4414"))

		Convey("Then resolution stops with the context error", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestResolveEveryCandidate(t *testing.T) {
	Convey("Given an artifact at exactly one candidate location", t, func() {
		id := league.MustParse("39")
		probeFixture := newFixture(t)
		total := len(probeFixture.prober.Candidates(id, true))

		for i := 0; i < total; i++ {
			i := i
			Convey(fmt.Sprintf("When it sits at candidate %d", i), func() {
				f := newFixture(t)
				remote := objectstore.NewMemoryStore()
				c := f.prober.Candidates(id, true)[i]
				content := fmt.Sprintf("blob-%d", i)
				if c.Remote() {
					So(remote.Put(context.Background(), c.Key, []byte(content)), ShouldBeNil)
				} else {
					writeFile(c.Key, content)
				}
				r := New(f.prober, WithRemote(remote), WithCacheDir(f.cache))

				res, err := r.Locate(context.Background(), id)

				Convey("Then resolve returns that candidate's content", func() {
					So(err, ShouldBeNil)
					So(res.Candidate, ShouldResemble, c)
					So(readFile(res.Path), ShouldEqual, content)
				})
			})
		}
	})
}

func TestResolveConcurrent(t *testing.T) {
	Convey("Given many concurrent resolutions of one league", t, func() {
		f := newFixture(t)
		remote := objectstore.NewMemoryStore()
		blob := make([]byte, 1<<20)
		for i := range blob {
			blob[i] = byte(i % 251)
		}
		So(remote.Put(context.Background(), "league_4414_model_optimized.pkl", blob), ShouldBeNil)
		r := New(f.prober, WithRemote(remote), WithCacheDir(f.cache))

		const workers = 16
		paths := make([]string, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				paths[w], errs[w] = r.Resolve(context.Background(), league.MustParse("4414"))
			}(w)
		}
		wg.Wait()

		Convey("Then every caller sees the complete artifact", func() {
			for w := 0; w < workers; w++ {
				So(errs[w], ShouldBeNil)
				data, err := os.ReadFile(paths[w])
				So(err, ShouldBeNil)
				So(len(data), ShouldEqual, len(blob))
				So(data[len(data)-1], ShouldEqual, blob[len(blob)-1])
			}
		})

		Convey("Then no temp files are left behind", func() {
			entries, err := os.ReadDir(filepath.Join(f.cache, "league_4414"))
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 1)
		})
	})
}

func TestResolveSharedCancellation(t *testing.T) {
	Convey("Given two callers sharing one slow resolution", t, func() {
		f := newFixture(t)
		inner := objectstore.NewMemoryStore()
		So(inner.Put(context.Background(), "league_4414_model_optimized.pkl", []byte("shared-blob")), ShouldBeNil)
		gated := newGatedStore(inner)
		r := New(f.prober, WithRemote(gated), WithCacheDir(f.cache))
		id := league.MustParse("4414")

		ctxA, cancelA := context.WithCancel(context.Background())
		defer cancelA()
		errA := make(chan error, 1)
		go func() {
			_, err := r.Locate(ctxA, id)
			errA <- err
		}()
		<-gated.entered

		type outcome struct {
			res Resolution
			err error
		}
		outB := make(chan outcome, 1)
		go func() {
			res, err := r.Locate(context.Background(), id)
			outB <- outcome{res: res, err: err}
		}()
		time.Sleep(50 * time.Millisecond)

		Convey("When the first caller cancels", func() {
			cancelA()
			err := <-errA
			close(gated.release)
			b := <-outB

			Convey("Then only the cancelled caller fails", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(b.err, ShouldBeNil)
				So(b.res.Remote(), ShouldBeTrue)
				So(readFile(b.res.Path), ShouldEqual, "shared-blob")
			})
		})
	})
}

func TestResolveFlightTimeout(t *testing.T) {
	Convey("Given a remote tier that never answers", t, func() {
		f := newFixture(t)
		gated := newGatedStore(objectstore.NewMemoryStore())
		writeFile(filepath.Join(f.primary, "league_4414_model.pkl"), "local")
		r := New(f.prober, WithRemote(gated), WithCacheDir(f.cache), WithFlightTimeout(30*time.Millisecond))

		Convey("When resolving without a caller deadline", func() {
			_, err := r.Resolve(context.Background(), league.MustParse("4414"))

			Convey("Then the shared run gives up at the flight timeout", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})
}
