package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// Field names the part of the session a Change touched.
type Field string

const (
	FieldSessionID       Field = "session_id"
	FieldRepo            Field = "repo"
	FieldAccessToken     Field = "access_token"
	FieldDocStyle        Field = "doc_style"
	FieldTopics          Field = "topics"
	FieldReferenceImages Field = "reference_images"
	FieldDocument        Field = "generated_document"
	FieldPublishStatus   Field = "publish_status"
	FieldStage           Field = "stage"
	FieldFailure         Field = "failure"
	FieldAnalysis        Field = "analysis"
	FieldCommitURL       Field = "commit_url"
	FieldAll             Field = "*"
)

// Change is delivered to subscribers after a mutation.
type Change struct {
	Field Field
}

// Store holds the session of one workspace. Setters never fail; checking
// values is the workflow's job. Subscribers run synchronously on the
// mutating goroutine, after the new value is visible to readers.
type Store struct {
	mu     sync.Mutex
	s      Session
	subs   map[int]func(Change)
	nextID int
	now    func() time.Time
}

// New returns a store holding a fresh session.
func New(d Defaults) *Store {
	return &Store{s: newSession(d), subs: make(map[int]func(Change)), now: time.Now}
}

// FromSession wraps an existing session, e.g. one read from disk.
func FromSession(s Session) *Store {
	st := New(Defaults{})
	st.s = s.clone()
	if st.s.Stage == "" {
		st.s.Stage = StageIdle
	}
	if st.s.PublishStatus == "" {
		st.s.PublishStatus = Unpublished
	}
	if st.s.Topics == nil {
		st.s.Topics = []string{}
	}
	return st
}

// Subscribe registers fn and returns a function that removes it.
func (st *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	st.mu.Lock()
	id := st.nextID
	st.nextID++
	st.subs[id] = fn
	st.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			st.mu.Lock()
			delete(st.subs, id)
			st.mu.Unlock()
		})
	}
}

// update applies fn under the lock and notifies subscribers when fn reports a change.
func (st *Store) update(field Field, fn func(*Session) bool) {
	st.mu.Lock()
	if !fn(&st.s) {
		st.mu.Unlock()
		return
	}
	st.s.UpdatedAt = st.now()
	ids := make([]int, 0, len(st.subs))
	for id := range st.subs {
		ids = append(ids, id)
	}
	st.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		st.mu.Lock()
		sub, ok := st.subs[id]
		st.mu.Unlock()
		if ok {
			sub(Change{Field: field})
		}
	}
}

// Snapshot returns a copy of the session.
func (st *Store) Snapshot() Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.clone()
}

// Reset replaces the session with a fresh one.
func (st *Store) Reset(d Defaults) {
	st.update(FieldAll, func(s *Session) bool {
		*s = newSession(d)
		return true
	})
}

func (st *Store) SessionID() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.SessionID
}

func (st *Store) SetSessionID(id string) {
	st.update(FieldSessionID, func(s *Session) bool {
		s.SessionID = id
		return true
	})
}

func (st *Store) RepoURL() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.RepoURL
}

// SetRepo sets the repository URL and its owner and name.
func (st *Store) SetRepo(url, owner, name string) {
	st.update(FieldRepo, func(s *Session) bool {
		s.RepoURL, s.Owner, s.Repo = url, owner, name
		return true
	})
}

func (st *Store) AccessToken() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.AccessToken
}

func (st *Store) SetAccessToken(token string) {
	st.update(FieldAccessToken, func(s *Session) bool {
		s.AccessToken = token
		return true
	})
}

func (st *Store) DocStyle() DocStyle {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.DocStyle
}

func (st *Store) SetDocStyle(style DocStyle) {
	st.update(FieldDocStyle, func(s *Session) bool {
		s.DocStyle = style
		return true
	})
}

// Topics returns the selected topics in display order.
func (st *Store) Topics() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.s.Topics...)
}

func (st *Store) HasTopic(topic string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return indexOf(st.s.Topics, topic) >= 0
}

// SetTopics replaces the topics, dropping blanks and later duplicates.
func (st *Store) SetTopics(topics []string) {
	st.update(FieldTopics, func(s *Session) bool {
		s.Topics = dedupe(topics)
		return true
	})
}

// AddTopic appends topic unless it is already present.
func (st *Store) AddTopic(topic string) {
	st.update(FieldTopics, func(s *Session) bool {
		if topic == "" || indexOf(s.Topics, topic) >= 0 {
			return false
		}
		s.Topics = append(s.Topics, topic)
		return true
	})
}

// RemoveTopic removes topic if present.
func (st *Store) RemoveTopic(topic string) {
	st.update(FieldTopics, func(s *Session) bool {
		i := indexOf(s.Topics, topic)
		if i < 0 {
			return false
		}
		s.Topics = append(s.Topics[:i:i], s.Topics[i+1:]...)
		return true
	})
}

// ToggleTopic removes topic when selected and appends it otherwise.
func (st *Store) ToggleTopic(topic string) {
	if st.HasTopic(topic) {
		st.RemoveTopic(topic)
		return
	}
	st.AddTopic(topic)
}

func (st *Store) ReferenceImages() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.s.ReferenceImages...)
}

func (st *Store) SetReferenceImages(urls []string) {
	st.update(FieldReferenceImages, func(s *Session) bool {
		s.ReferenceImages = append([]string(nil), urls...)
		return true
	})
}

func (st *Store) GeneratedDocument() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.GeneratedDocument
}

func (st *Store) SetGeneratedDocument(doc string) {
	st.update(FieldDocument, func(s *Session) bool {
		s.GeneratedDocument = doc
		return true
	})
}

func (st *Store) PublishStatus() PublishStatus {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.PublishStatus
}

func (st *Store) SetPublishStatus(ps PublishStatus) {
	st.update(FieldPublishStatus, func(s *Session) bool {
		s.PublishStatus = ps
		return true
	})
}

func (st *Store) Stage() Stage {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.Stage
}

func (st *Store) SetStage(stage Stage) {
	st.update(FieldStage, func(s *Session) bool {
		s.Stage = stage
		return true
	})
}

// SetFailure records the step that failed and the message shown for it.
func (st *Store) SetFailure(step, message string) {
	st.update(FieldFailure, func(s *Session) bool {
		s.FailedStep, s.LastError = step, message
		return true
	})
}

// ClearFailure dismisses the last failure message.
func (st *Store) ClearFailure() {
	st.update(FieldFailure, func(s *Session) bool {
		if s.FailedStep == "" && s.LastError == "" {
			return false
		}
		s.FailedStep, s.LastError = "", ""
		return true
	})
}

func (st *Store) SetAnalysis(raw json.RawMessage) {
	st.update(FieldAnalysis, func(s *Session) bool {
		s.Analysis = append(json.RawMessage(nil), raw...)
		return true
	})
}

func (st *Store) SetCommitURL(url string) {
	st.update(FieldCommitURL, func(s *Session) bool {
		s.CommitURL = url
		return true
	})
}

func sessionPath(dir string) string {
	return filepath.Join(dir, "session.json")
}

// Load reads the session saved in dir. A missing file yields a fresh session.
func Load(dir string, d Defaults) (*Store, error) {
	data, err := os.ReadFile(sessionPath(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(d), nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return FromSession(s), nil
}

// Save writes the session to dir. The file holds the access token, so it
// is readable by the owner only.
func (st *Store) Save(dir string) error {
	snap := st.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return writeFileAtomic(sessionPath(dir), data, 0600)
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
