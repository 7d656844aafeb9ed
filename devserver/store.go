package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-openapi/strfmt"
	"golang.org/x/crypto/bcrypt"
)

var (
	errEmailTaken    = errors.New("email already registered")
	errNotFound      = errors.New("not found")
	errAlreadyMember = errors.New("user already assigned")
)

// store is the in-memory state of the dev backend.
type store struct {
	mu  sync.Mutex
	now func() time.Time

	nextUser, nextProject, nextTask, nextLog, nextEntry int64

	users       map[int64]*user
	byEmail     map[string]int64
	projects    map[int64]*project
	owners      map[int64]map[int64]bool // projectID → owner userIDs
	tasks       map[int64]*task
	assignees   map[int64]map[int64]bool // taskID → userIDs
	logs        []taskLog
	timeEntries []timeEntry
}

func newStore(now func() time.Time) *store {
	return &store{
		now:       now,
		users:     map[int64]*user{},
		byEmail:   map[string]int64{},
		projects:  map[int64]*project{},
		owners:    map[int64]map[int64]bool{},
		tasks:     map[int64]*task{},
		assignees: map[int64]map[int64]bool{},
	}
}

func (s *store) stamp() strfmt.DateTime { return strfmt.DateTime(s.now().UTC()) }

func (s *store) addUser(email, name, password, role string) (user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return user{}, err
	}
	key := strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[key]; taken {
		return user{}, errEmailTaken
	}
	s.nextUser++
	u := &user{UserID: s.nextUser, Email: email, Name: name, Role: role, JoinedAt: s.stamp(), passwordHash: hash}
	s.users[u.UserID] = u
	s.byEmail[key] = u.UserID
	return *u, nil
}

// authenticate returns the user whose credentials match.
func (s *store) authenticate(email, password string) (user, bool) {
	s.mu.Lock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	var u user
	if ok {
		u = *s.users[id]
	}
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return user{}, false
	}
	return u, true
}

func (s *store) user(id int64) (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user{}, false
	}
	return *u, true
}

func (s *store) listUsers() []user {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]user, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *store) createProject(name string, owner int64) project {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProject++
	p := &project{ProjectID: s.nextProject, Name: name}
	s.projects[p.ProjectID] = p
	s.owners[p.ProjectID] = map[int64]bool{owner: true}
	return *p
}

// projectsFor returns every project for admins, owned projects otherwise.
func (s *store) projectsFor(u user) []project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []project{}
	for id, p := range s.projects {
		if u.Role == roleAdmin || s.owners[id][u.UserID] {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out
}

func (s *store) projectExists(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.projects[id]
	return ok
}

func (s *store) isOwner(projectID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owners[projectID][userID]
}

func (s *store) createTask(t task, by int64) task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTask++
	t.TaskID = s.nextTask
	t.Status = statusTodo
	t.CreatedBy = by
	t.CreatedAt = s.stamp()
	s.tasks[t.TaskID] = &t
	s.appendLogLocked(t.TaskID, by, "Task created")
	return t
}

// tasksFor lists a project's tasks: all of them for admins and owners,
// otherwise only those the user is assigned to.
func (s *store) tasksFor(projectID int64, u user) []task {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := u.Role == roleAdmin || s.owners[projectID][u.UserID]
	out := []task{}
	for _, t := range s.tasks {
		if t.ProjectID != projectID {
			continue
		}
		if all || s.assignees[t.TaskID][u.UserID] {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

func (s *store) task(id int64) (task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return task{}, false
	}
	return *t, true
}

func (s *store) setStatus(taskID, by int64, status string) (task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return task{}, errNotFound
	}
	old := t.Status
	t.Status = status
	s.appendLogLocked(taskID, by, "Status changed from "+old+" → "+status)
	return *t, nil
}

func (s *store) isAssignee(taskID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignees[taskID][userID]
}

func (s *store) assign(taskID, userID, by int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assignees[taskID][userID] {
		return errAlreadyMember
	}
	if s.assignees[taskID] == nil {
		s.assignees[taskID] = map[int64]bool{}
	}
	s.assignees[taskID][userID] = true
	s.appendLogLocked(taskID, by, "User "+itoa(userID)+" assigned to task")
	return nil
}

func (s *store) unassign(taskID, userID, by int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.assignees[taskID][userID] {
		return errNotFound
	}
	delete(s.assignees[taskID], userID)
	s.appendLogLocked(taskID, by, "User "+itoa(userID)+" unassigned from task")
	return nil
}

func (s *store) logsFor(taskID int64) []taskLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []taskLog{}
	for _, l := range s.logs {
		if l.TaskID == taskID {
			out = append(out, l)
		}
	}
	return out
}

func (s *store) appendLogLocked(taskID, userID int64, text string) {
	s.nextLog++
	s.logs = append(s.logs, taskLog{ID: s.nextLog, TaskID: taskID, UserID: userID, Log: text, CreatedAt: s.stamp()})
}

// addTimeEntry records te unless the user's total for the day would exceed
// the daily limit.
func (s *store) addTimeEntry(te timeEntry) (timeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := te.hours
	day := te.WorkDate.String()
	for _, e := range s.timeEntries {
		if e.UserID == te.UserID && e.WorkDate.String() == day {
			total += e.hours
		}
	}
	if total > dailyHourLimit {
		return timeEntry{}, false
	}
	s.nextEntry++
	te.TimeEntryID = s.nextEntry
	te.CreatedAt = s.stamp()
	s.timeEntries = append(s.timeEntries, te)
	return te, true
}
