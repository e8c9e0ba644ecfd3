// Package inmemdb provides mutex-guarded in-memory repositories, used by the
// test suites and the dev sandbox in place of Postgres.
package inmemdb

import (
	"sync"

	"github.com/remshq/rems/core/attendance"
	"github.com/remshq/rems/core/interview"
	"github.com/remshq/rems/core/program"
	"github.com/remshq/rems/core/user"
)

type DB struct {
	mu sync.RWMutex

	users map[string]*user.User

	events map[string]*attendance.Event
	logs   map[string]*attendance.Log

	forms       map[string]*interview.Form
	submissions map[string]*interview.Submission

	tracks   map[string]*program.Track
	modules  map[string]*program.Module
	sessions map[string]*program.Session
	tests    map[string]*program.ModuleTest // keyed by module ID
	results  map[string]*program.TestResult
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		events:      make(map[string]*attendance.Event),
		logs:        make(map[string]*attendance.Log),
		forms:       make(map[string]*interview.Form),
		submissions: make(map[string]*interview.Submission),
		tracks:      make(map[string]*program.Track),
		modules:     make(map[string]*program.Module),
		sessions:    make(map[string]*program.Session),
		tests:       make(map[string]*program.ModuleTest),
		results:     make(map[string]*program.TestResult),
	}
}

// Reset empties every table; test helpers call it between cases.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = make(map[string]*user.User)
	db.events = make(map[string]*attendance.Event)
	db.logs = make(map[string]*attendance.Log)
	db.forms = make(map[string]*interview.Form)
	db.submissions = make(map[string]*interview.Submission)
	db.tracks = make(map[string]*program.Track)
	db.modules = make(map[string]*program.Module)
	db.sessions = make(map[string]*program.Session)
	db.tests = make(map[string]*program.ModuleTest)
	db.results = make(map[string]*program.TestResult)
}
