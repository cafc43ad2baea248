package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diagnosis/institute-portal/pkg/config"
	"github.com/diagnosis/institute-portal/pkg/mailer"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/diagnosis/institute-portal/services/portal/internal/gateway"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret",
			Audience:             "institute-portal",
			SessionTTL:           24 * time.Hour,
			PendingChallengeTTL:  5 * time.Minute,
			VerifiedChallengeTTL: 30 * time.Minute,
			OTPTTL:               5 * time.Minute,
			OTPIssueLimit:        5,
			OTPIssueWindow:       15 * time.Minute,
		},
		Password: config.PasswordConfig{Hasher: "bcrypt", BcryptCost: 4},
		Payments: config.PaymentsConfig{Provider: "razorpay", Currency: "INR"},
		Portal:   config.PortalConfig{InstituteName: "Test Institute", AccessCode: "letmein"},
	}
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[domain.Role]map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[domain.Role]map[string]*domain.User{
		domain.RoleAdmin:   {},
		domain.RoleStudent: {},
		domain.RoleFaculty: {},
	}}
}

func (f *fakeUserRepo) add(role domain.Role, email, passwordHash string) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &domain.User{ID: bson.NewObjectID(), Name: "Test User", Email: email, PasswordHash: passwordHash, Role: role}
	f.users[role][email] = u
	return u
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, role domain.Role, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[role][email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, role domain.Role, id bson.ObjectID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users[role] {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) SetPasswordIfUnset(_ context.Context, role domain.Role, email, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[role][email]
	if !ok || u.PasswordHash != "" {
		return false, nil
	}
	u.PasswordHash = hash
	return true, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, role domain.Role, id bson.ObjectID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users[role] {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (f *fakeUserRepo) UpdateEmail(_ context.Context, role domain.Role, id bson.ObjectID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.users[role][email]; taken {
		return domain.ErrEmailTaken
	}
	for old, u := range f.users[role] {
		if u.ID == id {
			delete(f.users[role], old)
			u.Email = email
			f.users[role][email] = u
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (f *fakeUserRepo) CreateAdmin(_ context.Context, name, email, hash string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.users[domain.RoleAdmin][email]; taken {
		return nil, domain.ErrEmailTaken
	}
	u := &domain.User{ID: bson.NewObjectID(), Name: name, Email: email, PasswordHash: hash, Role: domain.RoleAdmin}
	f.users[domain.RoleAdmin][email] = u
	cp := *u
	return &cp, nil
}

type fakeOTPRepo struct {
	mu      sync.Mutex
	records map[string]*domain.OTPRecord
	// deleteMisses simulates a concurrent verify consuming the record first.
	deleteMisses bool
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{records: map[string]*domain.OTPRecord{}}
}

func otpKey(userID bson.ObjectID, role domain.Role, purpose string) string {
	return userID.Hex() + "|" + string(role) + "|" + purpose
}

func (f *fakeOTPRepo) Save(_ context.Context, rec *domain.OTPRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := otpKey(rec.UserID, rec.Role, rec.Purpose)
	if existing, ok := f.records[key]; ok {
		rec.ID = existing.ID
	} else {
		rec.ID = bson.NewObjectID()
	}
	cp := *rec
	f.records[key] = &cp
	return nil
}

func (f *fakeOTPRepo) FindLatest(_ context.Context, userID bson.ObjectID, role domain.Role, purpose string) (*domain.OTPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[otpKey(userID, role, purpose)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeOTPRepo) Delete(_ context.Context, id bson.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteMisses {
		return false, nil
	}
	for key, rec := range f.records {
		if rec.ID == id {
			delete(f.records, key)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOTPRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeStudentRepo struct {
	mu       sync.Mutex
	students map[bson.ObjectID]*domain.Student
	// beforeApply runs inside ApplyPayment before the conditional check.
	beforeApply func(s *domain.Student)
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: map[bson.ObjectID]*domain.Student{}}
}

func (f *fakeStudentRepo) add(fees domain.FeesLedger) *domain.Student {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &domain.Student{ID: bson.NewObjectID(), Name: "Asha", Email: "student@example.com", Fees: fees}
	f.students[s.ID] = s
	return s
}

func (f *fakeStudentRepo) get(id bson.ObjectID) domain.Student {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.students[id]
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id bson.ObjectID) (*domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.Fees.PaymentHistory = append([]domain.PaymentHistoryEntry(nil), s.Fees.PaymentHistory...)
	return &cp, nil
}

func (f *fakeStudentRepo) ApplyPayment(_ context.Context, id bson.ObjectID, p domain.Payment, at time.Time) (*domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return nil, nil
	}
	if f.beforeApply != nil {
		f.beforeApply(s)
	}
	if s.Fees.Due < p.Amount || s.Fees.HasReference(p.Reference) {
		return nil, nil
	}
	if err := s.Fees.ApplyPayment(p, at); err != nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStudentRepo) IncreaseTotal(_ context.Context, id bson.ObjectID, amount float64) (*domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return nil, nil
	}
	if err := s.Fees.IncreaseTotal(amount); err != nil {
		return nil, err
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStudentRepo) addToCourse(name, course string) *domain.Student {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &domain.Student{ID: bson.NewObjectID(), Name: name, Email: name + "@example.com", Course: course}
	f.students[s.ID] = s
	return s
}

func (f *fakeStudentRepo) ListByCourse(_ context.Context, course string) ([]domain.CourseStudent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CourseStudent, 0)
	for _, s := range f.students {
		if s.Course == course {
			out = append(out, domain.CourseStudent{ID: s.ID, Name: s.Name, Email: s.Email, Course: s.Course, Attendance: s.Attendance})
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) MarkAttendance(_ context.Context, course string, present, absent []bson.ObjectID) (*domain.AttendanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res domain.AttendanceResult
	for _, id := range present {
		if s, ok := f.students[id]; ok && s.Course == course {
			s.Attendance.Present++
			res.Present++
		}
	}
	for _, id := range absent {
		if s, ok := f.students[id]; ok && s.Course == course {
			s.Attendance.Absent++
			res.Absent++
		}
	}
	return &res, nil
}

type fakeFacultyRepo struct {
	faculty map[bson.ObjectID]*domain.Faculty
	err     error
}

func (f *fakeFacultyRepo) add(courses ...string) *domain.Faculty {
	if f.faculty == nil {
		f.faculty = map[bson.ObjectID]*domain.Faculty{}
	}
	fac := &domain.Faculty{ID: bson.NewObjectID(), Name: "Dr. Rao", Email: "rao@example.com", Courses: courses}
	f.faculty[fac.ID] = fac
	return fac
}

func (f *fakeFacultyRepo) FindByID(_ context.Context, id bson.ObjectID) (*domain.Faculty, error) {
	if f.err != nil {
		return nil, f.err
	}
	fac, ok := f.faculty[id]
	if !ok {
		return nil, nil
	}
	cp := *fac
	return &cp, nil
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (f *fakeNotificationRepo) Create(_ context.Context, message string) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := domain.Notification{ID: bson.NewObjectID(), Message: message, Date: time.Now()}
	f.items = append([]domain.Notification{n}, f.items...)
	return &n, nil
}

func (f *fakeNotificationRepo) List(context.Context) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Notification(nil), f.items...), nil
}

type sentOTP struct {
	to      string
	subject string
	code    int
}

type fakeMailer struct {
	mu       sync.Mutex
	otps     []sentOTP
	messages []string
	err      error
}

func (f *fakeMailer) SendOTP(_ context.Context, to, subject string, code int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.otps = append(f.otps, sentOTP{to: to, subject: subject, code: code})
	return nil
}

func (f *fakeMailer) SendMessage(_ context.Context, to, _, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, to+": "+message)
	return nil
}

func (f *fakeMailer) SendPaymentReceipt(context.Context, string, string, mailer.Receipt) error {
	return f.err
}

func (f *fakeMailer) lastCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.otps) == 0 {
		return 0
	}
	return f.otps[len(f.otps)-1].code
}

type fakeBus struct {
	mu       sync.Mutex
	subjects []string
	payloads []interface{}
	err      error
}

func (f *fakeBus) Publish(_ context.Context, subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeBus) Close() error { return nil }

type fakeThrottle struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeThrottle) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return true, f.err
	}
	return f.allowed, nil
}

type fakeGateway struct {
	verifyErr     error
	orders        []gateway.OrderRequest
	confirmations []gateway.Confirmation
}

func (f *fakeGateway) Method() domain.PaymentMethod { return domain.MethodRazorpay }

func (f *fakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	f.orders = append(f.orders, req)
	return &gateway.Order{ID: "order_test", Provider: "razorpay", Amount: req.Amount, Currency: req.Currency, Key: "key"}, nil
}

func (f *fakeGateway) VerifyPayment(_ context.Context, c gateway.Confirmation) error {
	f.confirmations = append(f.confirmations, c)
	return f.verifyErr
}

var errBoom = errors.New("boom")
