package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// Authority levels.
const (
	AuthorityMember    = 1
	AuthorityModerator = 2
	AuthorityAdmin     = 3
)

// PermissionChecker maps guild roles to authority levels.
type PermissionChecker struct {
	adminRoleID     string
	moderatorRoleID string
}

// NewPermissionChecker creates a PermissionChecker. Empty role IDs match
// nobody.
func NewPermissionChecker(adminRoleID, moderatorRoleID string) *PermissionChecker {
	return &PermissionChecker{adminRoleID: adminRoleID, moderatorRoleID: moderatorRoleID}
}

// Authority returns the level of m. Server administrators and holders of
// the admin role get [AuthorityAdmin]; a nil member (direct messages) is a
// plain member.
func (p *PermissionChecker) Authority(m *discordgo.Member) int {
	if m == nil {
		return AuthorityMember
	}
	switch {
	case m.Permissions&discordgo.PermissionAdministrator != 0:
		return AuthorityAdmin
	case p.adminRoleID != "" && slices.Contains(m.Roles, p.adminRoleID):
		return AuthorityAdmin
	case p.moderatorRoleID != "" && slices.Contains(m.Roles, p.moderatorRoleID):
		return AuthorityModerator
	}
	return AuthorityMember
}

// InteractionAuthority returns the authority of the interaction's author.
func (p *PermissionChecker) InteractionAuthority(i *discordgo.InteractionCreate) int {
	return p.Authority(i.Member)
}

// UserID extracts the author of an interaction in guild and DM contexts.
func UserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
