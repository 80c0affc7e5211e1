// Package queue is the durable on-disk store of captures awaiting upload.
// An entry is a filesystem pairing {base}.png|.avi + {base}.json inside a
// per-kind directory; it exists only when both halves are on stable storage.
// A half-written pair (crash between the two writes) is treated as corrupt:
// skipped by the drainer, left on disk for manual recovery.
package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/photolock/photolock/internal/common"
	"github.com/photolock/photolock/internal/envelope"
	"github.com/photolock/photolock/internal/filex"
)

// Kind selects the media directory and file extension.
type Kind string

const (
	KindImage Kind = "png"
	KindVideo Kind = "avi"
)

func (k Kind) dirName() string {
	switch k {
	case KindVideo:
		return "tmpVideos"
	default:
		return "tmpImages"
	}
}

// Kinds lists every media kind the drainer scans.
var Kinds = []Kind{KindImage, KindVideo}

// Entry names one fully present pending pair.
type Entry struct {
	Kind Kind
	Base int
}

func (e Entry) mediaName() string {
	return fmt.Sprintf("%d.%s", e.Base, e.Kind)
}

func (e Entry) recordName() string {
	return fmt.Sprintf("%d.json", e.Base)
}

// Queue manages the pending directories under a single root. The mutex
// serializes base allocation against the write that claims it; pipeline
// workers enqueue concurrently and must never share a base.
type Queue struct {
	root string
	mu   sync.Mutex
}

// New ensures the per-kind directories exist under root.
func New(root string) (*Queue, error) {
	for _, kind := range Kinds {
		if _, err := filex.EnsureDir(filepath.Join(root, kind.dirName())); err != nil {
			return nil, err
		}
	}
	return &Queue{root: root}, nil
}

// Dir returns the directory holding entries of the given kind.
func (q *Queue) Dir(kind Kind) string {
	return filepath.Join(q.root, kind.dirName())
}

// MediaPath returns the media half of an entry.
func (q *Queue) MediaPath(e Entry) string {
	return filepath.Join(q.Dir(e.Kind), e.mediaName())
}

// RecordPath returns the metadata half of an entry.
func (q *Queue) RecordPath(e Entry) string {
	return filepath.Join(q.Dir(e.Kind), e.recordName())
}

// Enqueue durably stores a capture and its metadata record under a fresh
// base number. The media half is written (and synced) first, then the
// sidecar; the entry only counts as enqueued once both calls return.
func (q *Queue) Enqueue(kind Kind, media []byte, rec envelope.Record) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	base, err := q.nextBase(kind)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Kind: kind, Base: base}

	if err := filex.WriteFileSync(q.MediaPath(e), media); err != nil {
		return Entry{}, fmt.Errorf("enqueue media: %w", err)
	}

	blob, err := envelope.MarshalRecord(rec)
	if err != nil {
		return Entry{}, fmt.Errorf("enqueue record: %w", err)
	}
	if err := filex.WriteFileSync(q.RecordPath(e), blob); err != nil {
		return Entry{}, fmt.Errorf("enqueue record: %w", err)
	}

	return e, nil
}

// EnqueueMediaFile registers an already written media file (the video
// recorder writes {base}.avi itself) by storing its sidecar record.
func (q *Queue) EnqueueMediaFile(e Entry, rec envelope.Record) error {
	if _, err := os.Stat(q.MediaPath(e)); err != nil {
		return fmt.Errorf("media half missing: %w", err)
	}

	blob, err := envelope.MarshalRecord(rec)
	if err != nil {
		return fmt.Errorf("enqueue record: %w", err)
	}
	if err := filex.WriteFileSync(q.RecordPath(e), blob); err != nil {
		return fmt.Errorf("enqueue record: %w", err)
	}
	return nil
}

// NextBase returns the next integer base not already used in the kind
// directory, counting every numeric file regardless of extension so a
// corrupt half still reserves its number.
func (q *Queue) NextBase(kind Kind) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nextBase(kind)
}

func (q *Queue) nextBase(kind Kind) (int, error) {
	names, err := listNames(q.Dir(kind))
	if err != nil {
		return 0, err
	}

	highest := -1
	for _, name := range names {
		base, ok := numericBase(name)
		if ok && base > highest {
			highest = base
		}
	}
	return highest + 1, nil
}

// List pairs numeric files in the kind directory by base name. Complete
// pairs come back sorted by base; bases with only one half are reported
// separately as corrupt and must not be deleted.
func (q *Queue) List(kind Kind) (pairs []Entry, corrupt []string, err error) {
	names, err := listNames(q.Dir(kind))
	if err != nil {
		return nil, nil, err
	}

	media := map[int]bool{}
	records := map[int]bool{}
	for _, name := range names {
		base, ext, ok := strictBase(name)
		if !ok {
			continue
		}
		switch ext {
		case string(kind):
			media[base] = true
		case "json":
			records[base] = true
		}
	}

	for base := range media {
		if records[base] {
			pairs = append(pairs, Entry{Kind: kind, Base: base})
		} else {
			corrupt = append(corrupt, fmt.Sprintf("%d.%s", base, kind))
		}
	}
	for base := range records {
		if !media[base] {
			corrupt = append(corrupt, fmt.Sprintf("%d.json", base))
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Base < pairs[j].Base })
	sort.Strings(corrupt)
	return pairs, corrupt, nil
}

// Load reads both halves of a complete entry back. A half that vanished
// since the entry was listed makes the pair corrupt.
func (q *Queue) Load(e Entry) ([]byte, envelope.Record, error) {
	media, err := os.ReadFile(q.MediaPath(e))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, envelope.Record{}, fmt.Errorf("%s: %w", e.mediaName(), common.ErrCorruptQueueEntry)
		}
		return nil, envelope.Record{}, fmt.Errorf("load media: %w", err)
	}

	blob, err := os.ReadFile(q.RecordPath(e))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, envelope.Record{}, fmt.Errorf("%s: %w", e.recordName(), common.ErrCorruptQueueEntry)
		}
		return nil, envelope.Record{}, fmt.Errorf("load record: %w", err)
	}

	rec, err := envelope.UnmarshalRecord(blob)
	if err != nil {
		return nil, envelope.Record{}, err
	}
	return media, rec, nil
}

// Remove deletes both halves after an acknowledged upload. Removing the
// media half first keeps an interrupted removal detectable (a lone .json is
// reported corrupt, never re-uploaded).
func (q *Queue) Remove(e Entry) error {
	if err := os.Remove(q.MediaPath(e)); err != nil {
		return fmt.Errorf("remove media: %w", err)
	}
	if err := os.Remove(q.RecordPath(e)); err != nil {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

func listNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// strictBase parses names of the exact form "n.ext". Anything else (scratch
// files such as "7raw.avi") is invisible to pairing.
func strictBase(name string) (base int, ext string, ok bool) {
	b, ext, found := strings.Cut(name, ".")
	if !found {
		return 0, "", false
	}
	n, err := strconv.Atoi(b)
	if err != nil {
		return 0, "", false
	}
	return n, ext, true
}

// numericBase is the looser form used for base allocation: an in-progress
// "7raw.avi" recording still reserves base 7 so a concurrent enqueue cannot
// collide with the recorder's final rename.
func numericBase(name string) (int, bool) {
	base, _, ok := strings.Cut(name, ".")
	if !ok {
		return 0, false
	}
	base = strings.TrimSuffix(base, "raw")
	n, err := strconv.Atoi(base)
	if err != nil {
		return 0, false
	}
	return n, true
}
