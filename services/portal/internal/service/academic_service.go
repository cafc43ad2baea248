package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/diagnosis/institute-portal/services/portal/internal/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// AcademicService serves profiles and course attendance.
type AcademicService interface {
	StudentProfile(ctx context.Context, studentID bson.ObjectID) (*domain.Student, error)
	StudentAttendance(ctx context.Context, studentID bson.ObjectID) (*domain.AttendanceSummary, error)
	FacultyProfile(ctx context.Context, facultyID bson.ObjectID) (*domain.Faculty, error)
	CourseStudents(ctx context.Context, facultyID bson.ObjectID, course string) ([]domain.CourseStudent, error)
	MarkAttendance(ctx context.Context, facultyID bson.ObjectID, course string, req *domain.AttendanceRequest) (*domain.AttendanceResult, error)
}

type academicService struct {
	studentRepo repository.StudentRepository
	facultyRepo repository.FacultyRepository
}

func NewAcademicService(studentRepo repository.StudentRepository, facultyRepo repository.FacultyRepository) AcademicService {
	return &academicService{
		studentRepo: studentRepo,
		facultyRepo: facultyRepo,
	}
}

func (s *academicService) StudentProfile(ctx context.Context, studentID bson.ObjectID) (*domain.Student, error) {
	student, err := s.studentRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find student: %w", err)
	}
	if student == nil {
		return nil, domain.ErrStudentNotFound
	}
	return student, nil
}

func (s *academicService) StudentAttendance(ctx context.Context, studentID bson.ObjectID) (*domain.AttendanceSummary, error) {
	student, err := s.StudentProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	summary := student.Attendance.Summary()
	return &summary, nil
}

func (s *academicService) FacultyProfile(ctx context.Context, facultyID bson.ObjectID) (*domain.Faculty, error) {
	faculty, err := s.facultyRepo.FindByID(ctx, facultyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find faculty: %w", err)
	}
	if faculty == nil {
		return nil, domain.ErrFacultyNotFound
	}
	return faculty, nil
}

// courseOf resolves the course for a faculty member who must teach it.
func (s *academicService) courseOf(ctx context.Context, facultyID bson.ObjectID, course string) (string, error) {
	course, err := domain.ParseCourse(course)
	if err != nil {
		return "", err
	}
	faculty, err := s.FacultyProfile(ctx, facultyID)
	if err != nil {
		return "", err
	}
	if !faculty.Teaches(course) {
		return "", domain.ErrNotCourseFaculty
	}
	return course, nil
}

func (s *academicService) CourseStudents(ctx context.Context, facultyID bson.ObjectID, course string) ([]domain.CourseStudent, error) {
	course, err := s.courseOf(ctx, facultyID, course)
	if err != nil {
		return nil, err
	}

	students, err := s.studentRepo.ListByCourse(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

func (s *academicService) MarkAttendance(ctx context.Context, facultyID bson.ObjectID, course string, req *domain.AttendanceRequest) (*domain.AttendanceResult, error) {
	present, absent, err := req.Validate()
	if err != nil {
		return nil, err
	}
	course, err = s.courseOf(ctx, facultyID, course)
	if err != nil {
		return nil, err
	}

	result, err := s.studentRepo.MarkAttendance(ctx, course, present, absent)
	if err != nil {
		return nil, fmt.Errorf("failed to mark attendance: %w", err)
	}

	logger.InfoContext(ctx, "Attendance marked",
		"faculty_id", facultyID.Hex(),
		"course", course,
		"present", result.Present,
		"absent", result.Absent,
	)
	return result, nil
}
