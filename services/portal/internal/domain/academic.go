package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Attendance counts the classes a student attended and missed. Counters only grow.
type Attendance struct {
	Present int `bson:"present" json:"present"`
	Absent  int `bson:"absent" json:"absent"`
}

type AttendanceSummary struct {
	PresentCount int `json:"presentCount"`
	AbsentCount  int `json:"absentCount"`
}

func (a Attendance) Summary() AttendanceSummary {
	return AttendanceSummary{PresentCount: a.Present, AbsentCount: a.Absent}
}

type Faculty struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string        `bson:"name" json:"name"`
	Email      string        `bson:"email" json:"email"`
	Department string        `bson:"department,omitempty" json:"department,omitempty"`
	Phone      string        `bson:"phone,omitempty" json:"phone,omitempty"`
	Courses    []string      `bson:"courses" json:"courses"`
	Address    string        `bson:"address,omitempty" json:"address,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt,omitempty" json:"created_at"`
}

// Teaches reports whether course is one of the faculty member's courses.
func (f *Faculty) Teaches(course string) bool {
	for _, c := range f.Courses {
		if c == course {
			return true
		}
	}
	return false
}

// CourseStudent is the roster view of a student; fees stay private.
type CourseStudent struct {
	ID         bson.ObjectID `bson:"_id" json:"id"`
	Name       string        `bson:"name" json:"name"`
	Email      string        `bson:"email" json:"email"`
	Course     string        `bson:"course" json:"course"`
	Attendance Attendance    `bson:"attendance" json:"attendance"`
}

type AttendanceRequest struct {
	PresentStudents []string `json:"presentStudents"`
	AbsentStudents  []string `json:"absentStudents"`
}

// AttendanceResult is the number of students whose counter moved.
type AttendanceResult struct {
	Present int64 `json:"present"`
	Absent  int64 `json:"absent"`
}

// Validate parses both lists. A student may appear in only one of them and
// at least one student must be marked.
func (r *AttendanceRequest) Validate() (present, absent []bson.ObjectID, err error) {
	seen := make(map[bson.ObjectID]bool)
	parse := func(ids []string) ([]bson.ObjectID, error) {
		out := make([]bson.ObjectID, 0, len(ids))
		for _, id := range ids {
			oid, err := bson.ObjectIDFromHex(strings.TrimSpace(id))
			if err != nil {
				return nil, Validation("each student must be a valid id")
			}
			if seen[oid] {
				return nil, Validation("a student can be marked only once")
			}
			seen[oid] = true
			out = append(out, oid)
		}
		return out, nil
	}

	if present, err = parse(r.PresentStudents); err != nil {
		return nil, nil, err
	}
	if absent, err = parse(r.AbsentStudents); err != nil {
		return nil, nil, err
	}
	if len(present)+len(absent) == 0 {
		return nil, nil, Validation("no students to mark")
	}
	return present, absent, nil
}

// ParseCourse trims a course name taken from the URL.
func ParseCourse(s string) (string, error) {
	course := strings.TrimSpace(s)
	if len(course) < 2 {
		return "", Validation("course must be at least 2 characters")
	}
	return course, nil
}
