package world

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"pinpoint-go/internal/artifact"
	"pinpoint-go/internal/model"
)

// HashPIN returns the hex SHA-256 of a collaboration PIN. Only the hash
// ever reaches the public zone; the plaintext stays in owner-local storage.
func HashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// VerifyPIN reports whether a supplied PIN matches a stored hash.
func VerifyPIN(pin, pinHash string) bool {
	h := HashPIN(pin)
	return subtle.ConstantTimeCompare([]byte(h), []byte(pinHash)) == 1
}

// MigrateToPublic publishes a world: a public-zone record mirroring the
// private map asset and timestamp, gated by a PIN.
//
// The world must have synced to the private zone at least once
// (ErrNeverSynced otherwise). The PIN is set once and immutable thereafter:
// if the world already carries one, the supplied value is ignored. The
// public record stores only the PIN hash and a pinRequired flag; on success
// the public record's identifier is written back into the private record.
func (r *Registry) MigrateToPublic(ctx context.Context, worldName, pin string) error {
	w := r.World(worldName)
	if w == nil {
		return fmt.Errorf("world %q: %w", worldName, ErrNotFound)
	}
	if w.CloudRecordID == "" {
		return fmt.Errorf("publishing %q: %w", worldName, ErrNeverSynced)
	}
	if w.PIN != "" {
		pin = w.PIN
	}

	priv, err := r.remote.Fetch(ctx, ZonePrivate, w.CloudRecordID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("publishing %q: %w", worldName, ErrNeverSynced)
		}
		return fmt.Errorf("fetching private record: %w", err)
	}

	// Fetch-or-create the public mirror.
	pubName := w.PublicRecordName
	if pubName == "" {
		recs, err := r.remote.Query(ctx, RecordTypeWorldMap, ZonePublic, Filter{Field: FieldRoomName, Value: worldName})
		if err == nil && len(recs) > 0 {
			pubName = recs[0].RecordName
		}
	}
	if pubName == "" {
		pubName = r.idgen.New()
	}

	pinHash := ""
	if pin != "" {
		pinHash = HashPIN(pin)
	}
	pub := Record{
		RecordName: pubName,
		Type:       RecordTypeWorldMap,
		Zone:       ZonePublic,
		Fields: map[string]any{
			FieldRoomName:     worldName,
			FieldLastModified: priv.Time(FieldLastModified),
			FieldPINRequired:  pin != "",
			FieldPINHash:      pinHash,
			FieldOwnerName:    r.ownerName,
		},
		Asset: priv.Asset,
	}
	if _, err := r.remote.Save(ctx, pub); err != nil {
		return fmt.Errorf("publishing world: %w", err)
	}

	priv.Fields[FieldPublicRecordName] = pubName
	if _, err := r.remote.Save(ctx, priv); err != nil {
		// Public record exists; retrying the migration is safe and converges.
		return fmt.Errorf("writing back public record name: %w", err)
	}

	w.PIN = pin
	w.PublicRecordName = pubName
	w.IsCollaborative = true
	r.setWorld(*w)
	r.persistRegistry()

	// Refresh the private metadata mirror too. The mirror still carries the
	// pre-publish PIN and collaboration flag from the last Save; left stale,
	// the next load's merge would fold those values back over the world.
	updated, err := r.uploadMetadata(ctx, *w)
	if err != nil {
		return fmt.Errorf("refreshing metadata mirror: %w", err)
	}
	r.setWorld(updated)
	r.persistRegistry()
	r.logger.Info("world published", "world", worldName, "publicRecord", pubName, "pinRequired", pin != "")
	return nil
}

// CreateShareLink returns the share URL for a world's private record,
// creating it if needed. Idempotent: an existing share wins, including one
// created concurrently by another client. Also subscribes to update
// notifications for the room.
func (r *Registry) CreateShareLink(ctx context.Context, worldName string) (string, error) {
	w := r.World(worldName)
	if w == nil {
		return "", fmt.Errorf("world %q: %w", worldName, ErrNotFound)
	}
	if w.CloudRecordID == "" {
		return "", fmt.Errorf("sharing %q: %w", worldName, ErrNeverSynced)
	}

	url, err := r.remote.CreateShare(ctx, w.CloudRecordID)
	if err != nil {
		return "", fmt.Errorf("creating share: %w", err)
	}
	if err := r.remote.Subscribe(ctx, w.CloudRecordID); err != nil {
		r.logger.Warn("subscribing to room updates", "world", worldName, "error", err)
	}
	return url, nil
}

// AcceptIncomingShare processes an externally received share URL: resolve
// the root record, dedupe against known shared links, persist a snapshot
// copy when the record carries thumbnail bytes, register the room as the
// current collaborative session, and post the follow-up the UI must run
// (PIN entry vs collaboration choice) to the pending-action inbox.
func (r *Registry) AcceptIncomingShare(ctx context.Context, shareURL string) error {
	rec, err := r.remote.AcceptShare(ctx, shareURL)
	if err != nil {
		return fmt.Errorf("accepting share: %w", err)
	}

	// Some share payloads carry only the root record's identifier; resolve
	// it with a secondary fetch.
	if rec.Fields == nil && rec.RecordName != "" {
		resolved, err := r.remote.Fetch(ctx, ZonePrivate, rec.RecordName)
		if errors.Is(err, ErrNotFound) {
			resolved, err = r.remote.Fetch(ctx, ZonePublic, rec.RecordName)
		}
		if err != nil {
			return fmt.Errorf("resolving share root record: %w", err)
		}
		rec = resolved
	}

	roomName := rec.String(FieldRoomName)
	if roomName == "" {
		return fmt.Errorf("share record %s has no room name", rec.RecordName)
	}
	ownerName := rec.String(FieldOwnerName)

	links, err := r.local.ReadSharedLinks()
	if err != nil {
		r.logger.Warn("reading shared links", "error", err)
		links = nil
	}
	duplicate := false
	for _, l := range links {
		if l.RoomName == roomName && l.OwnerName == ownerName {
			duplicate = true
			break
		}
	}

	snapshotFile := ""
	if len(rec.Asset) > 0 {
		if _, thumb, derr := artifact.Decode(rec.Asset); derr == nil && thumb != nil {
			if err := r.local.WriteSnapshot(roomName, thumb); err != nil {
				r.logger.Warn("writing shared snapshot", "room", roomName, "error", err)
			} else {
				snapshotFile = roomName + "_snapshot.png"
			}
		}
	}

	if !duplicate {
		links = append(links, model.SharedLink{
			ID:               r.idgen.New(),
			RoomName:         roomName,
			OwnerName:        ownerName,
			ShareURL:         shareURL,
			SnapshotFileName: snapshotFile,
			DateReceived:     r.clock.Now(),
		})
		if err := r.local.WriteSharedLinks(links); err != nil {
			r.logger.Error("persisting shared links", "error", err)
		}
	} else {
		r.logger.Debug("share already known", "room", roomName, "owner", ownerName)
	}

	// Register the room as the current collaborative session.
	if r.World(roomName) == nil {
		pubName := rec.String(FieldPublicRecordName)
		if pubName == "" {
			pubName = rec.RecordName
		}
		r.setWorld(model.World{
			ID:               r.idgen.New(),
			Name:             roomName,
			LastModified:     rec.Time(FieldLastModified),
			PublicRecordName: pubName,
			IsCollaborative:  true,
			Synced:           true,
		})
		r.persistRegistry()
	}

	action := model.PendingAction{
		RoomName:  roomName,
		OwnerName: ownerName,
		ShareURL:  shareURL,
	}
	if rec.Bool(FieldPINRequired) {
		action.Kind = model.PendingNeedsPIN
		action.PINHash = rec.String(FieldPINHash)
	} else {
		action.Kind = model.PendingCollaborationChoice
	}
	r.postPending(action)
	return nil
}

// SharedLinks returns the persisted list of received shares.
func (r *Registry) SharedLinks() ([]model.SharedLink, error) {
	return r.local.ReadSharedLinks()
}

// RemoveSharedLink deletes one received share by id. Removing a link never
// deletes the world it references.
func (r *Registry) RemoveSharedLink(id string) error {
	links, err := r.local.ReadSharedLinks()
	if err != nil {
		return err
	}
	kept := links[:0]
	for _, l := range links {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(links) {
		return fmt.Errorf("shared link %q: %w", id, ErrNotFound)
	}
	return r.local.WriteSharedLinks(kept)
}
