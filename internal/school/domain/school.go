package domain

import (
	"strings"
	"time"
)

// Firestore collection names
const (
	CollectionStudents           = "students"
	CollectionParents            = "parents"
	CollectionUsers              = "users"
	CollectionSections           = "sections"
	CollectionTasks              = "tasks"
	CollectionMessages           = "messages"
	CollectionAttendance         = "attendance"
	CollectionAttendanceSessions = "attendanceSessions"
	CollectionDevices            = "devices" // subcollection, queried as a collection group
)

// Student is the subject a notification is about. Only the fields the
// notification path reads are mapped.
type Student struct {
	ID          string `firestore:"-" json:"id"`
	Name        string `firestore:"name,omitempty" json:"name"`
	StudentID   string `firestore:"studentId,omitempty" json:"student_id,omitempty"`
	SectionID   string `firestore:"sectionId,omitempty" json:"section_id,omitempty"`
	ParentID    string `firestore:"parentId,omitempty" json:"parent_id,omitempty"`
	ParentEmail string `firestore:"parentEmail,omitempty" json:"parent_email,omitempty"`
	ParentPhone string `firestore:"parentPhone,omitempty" json:"parent_phone,omitempty"`
	OwnerUID    string `firestore:"ownerUid,omitempty" json:"owner_uid,omitempty"`
}

// TokenRecord is one registered device inside an fcmTokens array.
type TokenRecord struct {
	Token   string `firestore:"token" json:"-"`
	Device  string `firestore:"device,omitempty" json:"device,omitempty"`
	AddedAt string `firestore:"addedAt,omitempty" json:"added_at,omitempty"`
}

// Parent (guardian) holds the delivery tokens for one or more students.
// Canonical documents are keyed by identity.NormalizeEmail(Email); legacy
// documents carry an opaque id.
type Parent struct {
	ID               string        `firestore:"-" json:"id"`
	Name             string        `firestore:"name,omitempty" json:"name,omitempty"`
	Email            string        `firestore:"email,omitempty" json:"email,omitempty"`
	Phone            string        `firestore:"phone,omitempty" json:"phone,omitempty"`
	LinkedStudentIDs []string      `firestore:"linkedStudentIds,omitempty" json:"linked_student_ids,omitempty"`
	OwnerUIDs        []string      `firestore:"ownerUids,omitempty" json:"owner_uids,omitempty"`
	OwnerUID         string        `firestore:"ownerUid,omitempty" json:"owner_uid,omitempty"`
	FCMToken         string        `firestore:"fcmToken,omitempty" json:"-"`
	FCMTokens        []TokenRecord `firestore:"fcmTokens,omitempty" json:"-"`
	UpdatedAt        time.Time     `firestore:"updatedAt,omitempty" json:"updated_at"`
}

// DeliveryTokens returns the parent's tokens: the fcmTokens collection when it
// has any usable entry, otherwise the legacy single fcmToken. The two shapes
// are never merged.
func (p *Parent) DeliveryTokens() []string {
	if p == nil {
		return nil
	}
	return deliveryTokens(p.FCMTokens, p.FCMToken)
}

// User is an authenticated application principal (teacher, admin, parent app user).
type User struct {
	ID        string        `firestore:"-" json:"id"`
	Email     string        `firestore:"email,omitempty" json:"email,omitempty"`
	Phone     string        `firestore:"phone,omitempty" json:"phone,omitempty"`
	Role      string        `firestore:"role,omitempty" json:"role,omitempty"`
	FCMToken  string        `firestore:"fcmToken,omitempty" json:"-"`
	FCMTokens []TokenRecord `firestore:"fcmTokens,omitempty" json:"-"`
}

// DeliveryTokens applies the same two-shape rule as Parent.DeliveryTokens.
func (u *User) DeliveryTokens() []string {
	if u == nil {
		return nil
	}
	return deliveryTokens(u.FCMTokens, u.FCMToken)
}

// Device is a record in a devices subcollection.
type Device struct {
	ID       string `firestore:"-" json:"id"`
	Path     string `firestore:"-" json:"-"`
	Token    string `firestore:"token" json:"-"`
	Platform string `firestore:"platform,omitempty" json:"platform,omitempty"`
}

func deliveryTokens(records []TokenRecord, legacy string) []string {
	var tokens []string
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		t := strings.TrimSpace(r.Token)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	if len(tokens) > 0 {
		return tokens
	}
	if t := strings.TrimSpace(legacy); t != "" {
		return []string{t}
	}
	return nil
}
