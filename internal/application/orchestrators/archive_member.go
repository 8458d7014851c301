package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"repcount/internal/domain/member"
)

// MemberStoreForArchive defines the store interface needed by Archive/Restore.
type MemberStoreForArchive interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	Save(ctx context.Context, m member.Member) error
}

// ArchiveMemberInput carries input for the archive orchestrator.
type ArchiveMemberInput struct {
	GymID    string
	MemberID string
}

// ArchiveMemberDeps holds dependencies for ArchiveMember.
type ArchiveMemberDeps struct {
	MemberStore MemberStoreForArchive
}

// ExecuteArchiveMember hides a member who has left the gym. Payments and
// check-ins are kept.
// PRE: member exists in GymID and is not archived
// POST: member is left out of lists, reminders and check-in
func ExecuteArchiveMember(ctx context.Context, input ArchiveMemberInput, deps ArchiveMemberDeps) error {
	return toggleArchived(ctx, deps.MemberStore, input.GymID, input.MemberID, (*member.Member).Archive, "member_archived")
}

// RestoreMemberInput carries input for the restore orchestrator.
type RestoreMemberInput struct {
	GymID    string
	MemberID string
}

// RestoreMemberDeps holds dependencies for RestoreMember.
type RestoreMemberDeps struct {
	MemberStore MemberStoreForArchive
}

// ExecuteRestoreMember brings an archived member back. Restoring does not
// renew: a member whose expiry has passed comes back expired.
// PRE: member exists in GymID and is archived
func ExecuteRestoreMember(ctx context.Context, input RestoreMemberInput, deps RestoreMemberDeps) error {
	return toggleArchived(ctx, deps.MemberStore, input.GymID, input.MemberID, (*member.Member).Restore, "member_restored")
}

func toggleArchived(ctx context.Context, store MemberStoreForArchive, gymID, memberID string, apply func(*member.Member) error, event string) error {
	if memberID == "" {
		return invalid(errors.New("member ID is required"))
	}
	m, err := loadGymMember(ctx, store, gymID, memberID)
	if err != nil {
		return err
	}
	if err := apply(&m); err != nil {
		return invalid(err)
	}
	if err := store.Save(ctx, m); err != nil {
		return err
	}
	slog.Info("member_event", "event", event, "gym_id", gymID, "member_id", memberID)
	return nil
}
