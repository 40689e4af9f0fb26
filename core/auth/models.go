package auth

import (
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"
)

// user types accepted at login
var supportedUserTypes = []string{"parent", "child"}

type (
	LoginRequest struct {
		Username           string   `json:"username" validate:"required"`
		Password           string   `json:"password" validate:"required"`
		SupportedUserTypes []string `json:"supported_user_types"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	AccessToken struct {
		Token          string `json:"token"`
		ExpirationDate string `json:"expiration_date"`
	}

	// TokenResponse is returned by both login and refresh; User is only set on login.
	TokenResponse struct {
		AccessToken  AccessToken `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		User         *User       `json:"user"`
		Redirect     null.String `json:"redirect"`
	}

	User struct {
		ID            int64       `json:"id"`
		Language      null.String `json:"language"`
		Username      null.String `json:"username"`
		Name          null.String `json:"name"`
		Type          null.String `json:"type"`
		FreshPassword null.String `json:"freshPassword"`
		Gender        null.String `json:"gender"`
	}

	ChildItem struct {
		UUID               string      `json:"uuid"`
		DisplayName        null.String `json:"display_name"`
		ClassName          null.String `json:"class_name"`
		SchoolName         null.String `json:"school_name"`
		Gender             null.String `json:"gender"`
		Age                null.Int    `json:"age"`
		ShortName          null.String `json:"short_name"`
		SubscriptionStatus null.String `json:"subscription_status"`
	}
)

// Session is the logged in user, as persisted in the TokenStore.
type Session struct {
	AccessToken  string      `json:"-"`
	RefreshToken string      `json:"-"`
	UserName     null.String `json:"user_name"`
	UserID       null.String `json:"user_id"`
	SchoolID     null.Int    `json:"school_id"`
}

// ChildProfile is a child the logged in parent has access to.
type ChildProfile struct {
	UUID               string      `json:"uuid"`
	StudentID          int         `json:"student_id"`
	ClassID            null.Int    `json:"class_id"`
	DisplayName        null.String `json:"display_name"`
	ClassName          null.String `json:"class_name"`
	SchoolName         null.String `json:"school_name"`
	SubscriptionStatus null.String `json:"subscription_status"`
}

// ParseChildUUID extracts the ids encoded in a child uuid:
// "prefix$<userId>.<year>.<schoolId>.<classId>.<studentId>".
// ok is false when no student id can be read; classID is still set when its part is numeric.
func ParseChildUUID(uuid string) (studentID int, classID null.Int, ok bool) {
	rest := uuid
	if i := strings.IndexByte(uuid, '$'); i >= 0 {
		rest = uuid[i+1:]
	}
	parts := strings.Split(rest, ".")
	if len(parts) > 3 {
		if id, err := strconv.Atoi(parts[3]); err == nil {
			classID = null.IntFrom(id)
		}
	}
	if len(parts) <= 4 {
		return 0, classID, false
	}
	studentID, err := strconv.Atoi(parts[4])
	if err != nil {
		return 0, classID, false
	}
	return studentID, classID, true
}

// NewChildProfile builds a profile out of a children list item; ok is false for unusable items.
func NewChildProfile(item ChildItem) (ChildProfile, bool) {
	studentID, classID, ok := ParseChildUUID(item.UUID)
	if !ok {
		return ChildProfile{}, false
	}
	return ChildProfile{
		UUID:               item.UUID,
		StudentID:          studentID,
		ClassID:            classID,
		DisplayName:        item.DisplayName,
		ClassName:          item.ClassName,
		SchoolName:         item.SchoolName,
		SubscriptionStatus: item.SubscriptionStatus,
	}, true
}

// Grades

type (
	SubjectGrades struct {
		Name         string           `json:"name"`
		ShortName    null.String      `json:"short_name"`
		ID           int64            `json:"id"`
		GradeType    null.String      `json:"grade_type"`
		IsExcused    null.Bool        `json:"is_excused"`
		FinalGrade   null.String      `json:"final_grade"`
		AverageGrade null.String      `json:"average_grade"`
		GradeRank    null.String      `json:"grade_rank"`
		Semesters    []SemesterGrades `json:"semesters"`
	}

	SemesterGrades struct {
		ID         int         `json:"id"`
		FinalGrade null.String `json:"final_grade"`
		Grades     []GradeItem `json:"grades"`
	}

	GradeItem struct {
		TypeName     null.String `json:"type_name"`
		Comment      null.String `json:"comment"`
		ID           int64       `json:"id"`
		Type         null.String `json:"type"`
		OverridesIDs []int64     `json:"overrides_ids"`
		Value        null.String `json:"value"`
		Color        null.String `json:"color"`
		Date         null.String `json:"date"` // yyyy-mm-dd
		InsertedAt   null.String `json:"inserted_at"`
	}

	NotificationItem struct {
		Title     null.String       `json:"title"`
		Message   null.String       `json:"message"`
		MetaData  *NotificationMeta `json:"meta_data"`
		ID        int64             `json:"id"`
		CreatedAt null.String       `json:"created_at"` // "yyyy-mm-dd hh:mm:ss"
		Seen      null.Bool         `json:"seen"`
		Type      null.String       `json:"type"`
	}

	NotificationMeta struct {
		ChannelID   null.String `json:"channelId"`
		MessageID   null.Int64  `json:"messageId"`
		UserID      null.Int64  `json:"userId"`
		ChannelType null.String `json:"channelType"`
		GradeID     null.Int64  `json:"gradeId"`
		SubjectID   null.Int64  `json:"subjectId"`
		Date        null.String `json:"date"`
		ScheduleID  null.Int64  `json:"schedule_id"`
		EventSlug   null.String `json:"event_slug"`
	}
)
