package domain

// Task is a created assignment/announcement for a whole section.
type Task struct {
	ID          string `firestore:"-" json:"id"`
	Title       string `firestore:"title,omitempty" json:"title"`
	Type        string `firestore:"type,omitempty" json:"type,omitempty"`
	Deadline    string `firestore:"deadline,omitempty" json:"deadline,omitempty"`
	Description string `firestore:"description,omitempty" json:"description,omitempty"`
	SectionID   string `firestore:"sectionId,omitempty" json:"section_id,omitempty"`
	OwnerUID    string `firestore:"ownerUid,omitempty" json:"owner_uid,omitempty"`
}

// Message is a teacher message, either direct (ToParentID) or section-wide.
type Message struct {
	ID            string   `firestore:"-" json:"id"`
	FromTeacherID string   `firestore:"fromTeacherId,omitempty" json:"from_teacher_id,omitempty"`
	ToParentID    string   `firestore:"toParentId,omitempty" json:"to_parent_id,omitempty"`
	SectionID     string   `firestore:"sectionId,omitempty" json:"section_id,omitempty"`
	Title         string   `firestore:"title,omitempty" json:"title,omitempty"`
	Content       string   `firestore:"content,omitempty" json:"content,omitempty"`
	StudentIDs    []string `firestore:"studentIds,omitempty" json:"student_ids,omitempty"`
	StudentID     string   `firestore:"studentId,omitempty" json:"student_id,omitempty"`
	OwnerUID      string   `firestore:"ownerUid,omitempty" json:"owner_uid,omitempty"`
}

// Document is a raw document from an arbitrary collection.
type Document struct {
	Collection string
	ID         string
	Data       map[string]interface{}
}

// String returns a string field or "" when absent or not a string.
func (d *Document) String(field string) string {
	if d == nil || d.Data == nil {
		return ""
	}
	s, _ := d.Data[field].(string)
	return s
}

// Strings returns a string-array field, skipping non-string and blank entries.
func (d *Document) Strings(field string) []string {
	if d == nil || d.Data == nil {
		return nil
	}
	var out []string
	switch v := d.Data[field].(type) {
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

// StudentIDs returns studentIds, falling back to the single studentId field.
func (d *Document) StudentIDs() []string {
	ids := d.Strings("studentIds")
	if len(ids) == 0 {
		if id := d.String("studentId"); id != "" {
			ids = []string{id}
		}
	}
	return ids
}
