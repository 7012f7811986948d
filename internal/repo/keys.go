package repo

// Name identifies a collection inside an organization.
type Name string

// Organization collections.
const (
	Teachers          Name = "teachers"
	TeacherAccounts   Name = "teacher_accounts"
	TeacherAttendance Name = "teacher_attendance"
	TeacherPayments   Name = "teacher_payments"
	TeacherPerform    Name = "teacher_performance"
	Classes           Name = "classes"
	ClassSchedule     Name = "class_schedule"
	Students          Name = "students"
	StudentAttendance Name = "student_attendance"
	TeacherMessages   Name = "teacher_messages"
	LeaveRequests     Name = "leave_requests"
	Announcements     Name = "announcements"
)

// Names lists every organization collection.
var Names = []Name{
	Teachers, TeacherAccounts, TeacherAttendance, TeacherPayments, TeacherPerform,
	Classes, ClassSchedule, Students, StudentAttendance, TeacherMessages,
	LeaveRequests, Announcements,
}

// Keys shared by every organization.
const (
	OrganizationsUsersKey = "organizations_users"
	ActiveUserKey         = "active_user"
	ActiveOrgKey          = "active_org"
	TeacherActiveUserKey  = "teacher_active_user"

	// legacyActiveOrgKey is still read when ActiveOrgKey is empty.
	legacyActiveOrgKey = "activeOrg"
)

// Key returns the storage key of a collection within org.
func Key(org string, name Name) string {
	return org + "_" + string(name)
}

// SplitKey reverses Key for one of the known collections.
func SplitKey(key string) (org string, name Name, ok bool) {
	for _, n := range Names {
		suffix := "_" + string(n)
		if len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix {
			return key[:len(key)-len(suffix)], n, true
		}
	}
	return "", "", false
}
