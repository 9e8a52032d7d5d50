package repository

import (
	"strings"
	"time"

	"fled-backend/internal/school/domain"
)

// Documents are decoded by hand instead of DataTo: older clients wrote
// fcmTokens as plain strings and some numeric fields as numbers, and a single
// odd field must not make a whole parent unreadable.

type fields map[string]interface{}

func (f fields) str(key string) string {
	s, _ := f[key].(string)
	return s
}

func (f fields) strs(key string) []string {
	var out []string
	switch v := f[key].(type) {
	case []string:
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func (f fields) time(key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	}
	return time.Time{}
}

// tokenRecords accepts both [{token: "..."}] and ["..."] shapes.
func (f fields) tokenRecords(key string) []domain.TokenRecord {
	items, ok := f[key].([]interface{})
	if !ok {
		return nil
	}
	var out []domain.TokenRecord
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				out = append(out, domain.TokenRecord{Token: v})
			}
		case map[string]interface{}:
			rec := fields(v)
			if strings.TrimSpace(rec.str("token")) == "" {
				continue
			}
			out = append(out, domain.TokenRecord{
				Token:   rec.str("token"),
				Device:  rec.str("device"),
				AddedAt: rec.str("addedAt"),
			})
		}
	}
	return out
}

func decodeStudent(id string, data map[string]interface{}) *domain.Student {
	f := fields(data)
	return &domain.Student{
		ID:          id,
		Name:        f.str("name"),
		StudentID:   f.str("studentId"),
		SectionID:   f.str("sectionId"),
		ParentID:    f.str("parentId"),
		ParentEmail: f.str("parentEmail"),
		ParentPhone: f.str("parentPhone"),
		OwnerUID:    f.str("ownerUid"),
	}
}

func decodeParent(id string, data map[string]interface{}) *domain.Parent {
	f := fields(data)
	return &domain.Parent{
		ID:               id,
		Name:             f.str("name"),
		Email:            f.str("email"),
		Phone:            f.str("phone"),
		LinkedStudentIDs: f.strs("linkedStudentIds"),
		OwnerUIDs:        f.strs("ownerUids"),
		OwnerUID:         f.str("ownerUid"),
		FCMToken:         f.str("fcmToken"),
		FCMTokens:        f.tokenRecords("fcmTokens"),
		UpdatedAt:        f.time("updatedAt"),
	}
}

func decodeUser(id string, data map[string]interface{}) *domain.User {
	f := fields(data)
	return &domain.User{
		ID:        id,
		Email:     f.str("email"),
		Phone:     f.str("phone"),
		Role:      f.str("role"),
		FCMToken:  f.str("fcmToken"),
		FCMTokens: f.tokenRecords("fcmTokens"),
	}
}

func tokenRecordMap(r domain.TokenRecord) map[string]interface{} {
	m := map[string]interface{}{"token": r.Token}
	if r.Device != "" {
		m["device"] = r.Device
	}
	if r.AddedAt != "" {
		m["addedAt"] = r.AddedAt
	}
	return m
}
