package repository

import (
	"context"
	"errors"
	"fmt"

	"fled-backend/internal/school/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// getDoc returns (nil, nil) for a missing document or an id that is not a
// valid document name.
func getDoc(ctx context.Context, client *firestore.Client, collection, id string) (*firestore.DocumentSnapshot, error) {
	if id == "" {
		return nil, nil
	}
	ref := client.Collection(collection).Doc(id)
	if ref == nil {
		return nil, nil
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !snap.Exists() {
		return nil, nil
	}
	return snap, nil
}

// clearField deletes field from every document matched by query and keeps
// going past individual update failures.
func clearField(ctx context.Context, query firestore.Query, field string) (int, error) {
	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	cleared := 0
	var errs []error
	for _, snap := range snaps {
		if _, err := snap.Ref.Update(ctx, []firestore.Update{{Path: field, Value: firestore.Delete}}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", snap.Ref.Path, err))
			continue
		}
		cleared++
	}
	return cleared, errors.Join(errs...)
}

// --- students ---

type firestoreStudentRepository struct {
	client *firestore.Client
}

// NewFirestoreStudentRepository creates a StudentRepository backed by Firestore
func NewFirestoreStudentRepository(client *firestore.Client) StudentRepository {
	return &firestoreStudentRepository{client: client}
}

func (r *firestoreStudentRepository) FindByID(ctx context.Context, id string) (*domain.Student, error) {
	snap, err := getDoc(ctx, r.client, domain.CollectionStudents, id)
	if err != nil || snap == nil {
		return nil, err
	}
	return decodeStudent(snap.Ref.ID, snap.Data()), nil
}

func (r *firestoreStudentRepository) FindBySection(ctx context.Context, sectionID string) ([]*domain.Student, error) {
	snaps, err := r.client.Collection(domain.CollectionStudents).
		Where("sectionId", "==", sectionID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	students := make([]*domain.Student, 0, len(snaps))
	for _, snap := range snaps {
		students = append(students, decodeStudent(snap.Ref.ID, snap.Data()))
	}
	return students, nil
}

// --- parents ---

type firestoreParentRepository struct {
	client *firestore.Client
}

// NewFirestoreParentRepository creates a ParentRepository backed by Firestore
func NewFirestoreParentRepository(client *firestore.Client) ParentRepository {
	return &firestoreParentRepository{client: client}
}

func (r *firestoreParentRepository) FindByID(ctx context.Context, id string) (*domain.Parent, error) {
	snap, err := getDoc(ctx, r.client, domain.CollectionParents, id)
	if err != nil || snap == nil {
		return nil, err
	}
	return decodeParent(snap.Ref.ID, snap.Data()), nil
}

func (r *firestoreParentRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Parent, error) {
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if ref := r.client.Collection(domain.CollectionParents).Doc(id); ref != nil {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}

	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, err
	}
	parents := make([]*domain.Parent, 0, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		parents = append(parents, decodeParent(snap.Ref.ID, snap.Data()))
	}
	return parents, nil
}

func (r *firestoreParentRepository) FindByPhone(ctx context.Context, phone string) ([]*domain.Parent, error) {
	snaps, err := r.client.Collection(domain.CollectionParents).
		Where("phone", "==", phone).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	parents := make([]*domain.Parent, 0, len(snaps))
	for _, snap := range snaps {
		parents = append(parents, decodeParent(snap.Ref.ID, snap.Data()))
	}
	return parents, nil
}

func (r *firestoreParentRepository) FindAll(ctx context.Context) ([]*domain.Parent, error) {
	snaps, err := r.client.Collection(domain.CollectionParents).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	parents := make([]*domain.Parent, 0, len(snaps))
	for _, snap := range snaps {
		parents = append(parents, decodeParent(snap.Ref.ID, snap.Data()))
	}
	return parents, nil
}

// MergeCanonical writes scalar fields with merge semantics and array fields
// with ArrayUnion so links added concurrently by the CRUD screens survive.
func (r *firestoreParentRepository) MergeCanonical(ctx context.Context, parent *domain.Parent) error {
	ref := r.client.Collection(domain.CollectionParents).Doc(parent.ID)
	if ref == nil {
		return fmt.Errorf("invalid parent id %q", parent.ID)
	}

	data := map[string]interface{}{
		"email":     parent.Email,
		"updatedAt": firestore.ServerTimestamp,
	}
	if parent.Name != "" {
		data["name"] = parent.Name
	}
	if parent.Phone != "" {
		data["phone"] = parent.Phone
	}
	if parent.FCMToken != "" {
		data["fcmToken"] = parent.FCMToken
	}
	if len(parent.LinkedStudentIDs) > 0 {
		data["linkedStudentIds"] = firestore.ArrayUnion(stringValues(parent.LinkedStudentIDs)...)
	}
	if len(parent.OwnerUIDs) > 0 {
		data["ownerUids"] = firestore.ArrayUnion(stringValues(parent.OwnerUIDs)...)
	}
	if len(parent.FCMTokens) > 0 {
		records := make([]interface{}, 0, len(parent.FCMTokens))
		for _, rec := range parent.FCMTokens {
			records = append(records, tokenRecordMap(rec))
		}
		data["fcmTokens"] = firestore.ArrayUnion(records...)
	}

	_, err := ref.Set(ctx, data, firestore.MergeAll)
	return err
}

func (r *firestoreParentRepository) Delete(ctx context.Context, id string) error {
	ref := r.client.Collection(domain.CollectionParents).Doc(id)
	if ref == nil {
		return fmt.Errorf("invalid parent id %q", id)
	}
	_, err := ref.Delete(ctx)
	return err
}

func (r *firestoreParentRepository) ClearLegacyToken(ctx context.Context, token string) (int, error) {
	q := r.client.Collection(domain.CollectionParents).Where("fcmToken", "==", token)
	return clearField(ctx, q, "fcmToken")
}

// --- users ---

type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a UserRepository backed by Firestore
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	snap, err := getDoc(ctx, r.client, domain.CollectionUsers, id)
	if err != nil || snap == nil {
		return nil, err
	}
	return decodeUser(snap.Ref.ID, snap.Data()), nil
}

func (r *firestoreUserRepository) AddToken(ctx context.Context, uid string, record domain.TokenRecord) error {
	ref := r.client.Collection(domain.CollectionUsers).Doc(uid)
	if ref == nil {
		return fmt.Errorf("invalid user id %q", uid)
	}
	_, err := ref.Set(ctx, map[string]interface{}{
		"fcmTokens":       firestore.ArrayUnion(tokenRecordMap(record)),
		"lastTokenUpdate": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}

func (r *firestoreUserRepository) RemoveToken(ctx context.Context, uid, token string) (bool, error) {
	ref := r.client.Collection(domain.CollectionUsers).Doc(uid)
	if ref == nil {
		return false, nil
	}

	removed := false
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		removed = false
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}

		records := fields(snap.Data()).tokenRecords("fcmTokens")
		kept := make([]interface{}, 0, len(records))
		for _, rec := range records {
			if rec.Token == token {
				removed = true
				continue
			}
			kept = append(kept, tokenRecordMap(rec))
		}
		if !removed {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "fcmTokens", Value: kept},
			{Path: "lastTokenUpdate", Value: firestore.ServerTimestamp},
		})
	})
	return removed, err
}

func (r *firestoreUserRepository) ClearLegacyToken(ctx context.Context, token string) (int, error) {
	q := r.client.Collection(domain.CollectionUsers).Where("fcmToken", "==", token)
	return clearField(ctx, q, "fcmToken")
}

// --- devices ---

type firestoreDeviceRepository struct {
	client *firestore.Client
}

// NewFirestoreDeviceRepository creates a DeviceRepository over the devices collection group
func NewFirestoreDeviceRepository(client *firestore.Client) DeviceRepository {
	return &firestoreDeviceRepository{client: client}
}

func (r *firestoreDeviceRepository) DeleteByToken(ctx context.Context, token string) (int, error) {
	snaps, err := r.client.CollectionGroup(domain.CollectionDevices).
		Where("token", "==", token).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	deleted := 0
	var errs []error
	for _, snap := range snaps {
		if _, err := snap.Ref.Delete(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", snap.Ref.Path, err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

// --- raw documents ---

type firestoreDocumentRepository struct {
	client *firestore.Client
}

// NewFirestoreDocumentRepository creates a DocumentRepository backed by Firestore
func NewFirestoreDocumentRepository(client *firestore.Client) DocumentRepository {
	return &firestoreDocumentRepository{client: client}
}

func (r *firestoreDocumentRepository) FindDocument(ctx context.Context, collection, id string) (*domain.Document, error) {
	snap, err := getDoc(ctx, r.client, collection, id)
	if err != nil || snap == nil {
		return nil, err
	}
	return &domain.Document{Collection: collection, ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func stringValues(ss []string) []interface{} {
	out := make([]interface{}, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}
