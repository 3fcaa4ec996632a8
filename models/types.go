// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// User roles
const (
	RoleVoter      = "VOTER"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// Notification types
const (
	NotificationVotingOpened = "VOTING_OPENED"
)

// VotingConfigID is the primary key of the singleton voting_config row.
const VotingConfigID = "main"

const DefaultBlockMessage = "Les votes sont actuellement fermés. Ils seront ouverts le jour de l'événement."

// Request types

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Domain   string `json:"domain"`
	City     string `json:"city"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Pointer fields are left untouched when absent from the request.
type UpdateUserRequest struct {
	ID           string  `json:"id"`
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Password     *string `json:"password"`
	Domain       *string `json:"domain"`
	City         *string `json:"city"`
	Role         *string `json:"role"`
	ProfilePhoto *string `json:"profilePhoto"`
}

type CategoryRequest struct {
	ID                string  `json:"id"`
	Name              *string `json:"name"`
	Subtitle          *string `json:"subtitle"`
	Special           *bool   `json:"special"`
	IsLeadershipPrize *bool   `json:"isLeadershipPrize"`
	PreAssignedWinner *string `json:"preAssignedWinner"`
}

type CandidateRequest struct {
	ID            string      `json:"id"`
	CategoryID    *string     `json:"categoryId"`
	Name          *string     `json:"name"`
	Alias         *string     `json:"alias"`
	Image         *string     `json:"image"`
	Bio           *string     `json:"bio"`
	Achievements  *StringList `json:"achievements"`
	SongCount     *int        `json:"songCount"`
	CandidateSong *string     `json:"candidateSong"`
	AudioFile     *string     `json:"audioFile"`
}

type CastVoteRequest struct {
	UserID        string `json:"userId"`
	CategoryID    string `json:"categoryId"`
	CandidateID   string `json:"candidateId"`
	CandidateName string `json:"candidateName"`
}

type UpdateVotingConfigRequest struct {
	CurrentEvent *VotingEvent `json:"currentEvent"`
	IsVotingOpen bool         `json:"isVotingOpen"`
	BlockMessage string       `json:"blockMessage"`
}

type MarkReadRequest struct {
	NotificationID string `json:"notificationId"`
}

type MarkAllReadRequest struct {
	UserID string `json:"userId"`
}

type VotingOpenedRequest struct {
	Message string `json:"message"`
	EventID string `json:"eventId"`
}

// Response types

type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type NotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
}

type MarkReadResponse struct {
	Success      bool         `json:"success"`
	Notification Notification `json:"notification"`
}

type MarkAllReadResponse struct {
	Success      bool  `json:"success"`
	MarkedAsRead int64 `json:"markedAsRead"`
}

type BroadcastResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

type VotingConfigResponse struct {
	VotingConfig
	PollIntervalSeconds int `json:"pollIntervalSeconds"`
}

type VotingStats struct {
	TotalUsers         int            `json:"totalUsers"`
	TotalVotes         int            `json:"totalVotes"`
	TodayVotes         int            `json:"todayVotes"`
	UniqueTodayVoters  int            `json:"uniqueTodayVoters"`
	AverageTimeMinutes int64          `json:"averageTimeMinutes"`
	AverageTimeHuman   string         `json:"averageTimeHuman"`
	CategoryStats      map[string]int `json:"categoryStats"`
	MostVotedCategory  *string        `json:"mostVotedCategory"`
}

// Domain types

type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        *string   `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone"`
	PasswordHash string    `db:"password_hash" json:"-"` // Never expose in JSON
	Role         string    `db:"role" json:"role"`
	Domain       string    `db:"domain" json:"domain"`
	City         string    `db:"city" json:"city"`
	ProfilePhoto *string   `db:"profile_photo" json:"profilePhoto,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleSuperAdmin
}

type Category struct {
	ID                string      `db:"id" json:"id"`
	Name              string      `db:"name" json:"name"`
	Subtitle          string      `db:"subtitle" json:"subtitle"`
	Special           bool        `db:"special" json:"special"`
	IsLeadershipPrize bool        `db:"is_leadership_prize" json:"isLeadershipPrize"`
	PreAssignedWinner *string     `db:"pre_assigned_winner" json:"preAssignedWinner,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"createdAt"`
	Candidates        []Candidate `db:"-" json:"candidates"`
}

type Candidate struct {
	ID            string     `db:"id" json:"id"`
	CategoryID    string     `db:"category_id" json:"categoryId"`
	Name          string     `db:"name" json:"name"`
	Alias         string     `db:"alias" json:"alias"`
	Image         string     `db:"image" json:"image"`
	Bio           string     `db:"bio" json:"bio"`
	Achievements  StringList `db:"achievements" json:"achievements"`
	SongCount     int        `db:"song_count" json:"songCount"`
	CandidateSong string     `db:"candidate_song" json:"candidateSong"`
	AudioFile     string     `db:"audio_file" json:"audioFile"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

type Vote struct {
	ID            string  `db:"id" json:"id"`
	UserID        string  `db:"user_id" json:"userId"`
	CategoryID    string  `db:"category_id" json:"categoryId"`
	CandidateID   string  `db:"candidate_id" json:"candidateId"`
	CandidateName string  `db:"candidate_name" json:"candidateName"`
	Timestamp     int64   `db:"voted_at" json:"timestamp"` // unix seconds
	IPHash        *string `db:"ip_hash" json:"-"`          // Never expose in JSON
	UserAgent     *string `db:"user_agent" json:"-"`       // Never expose in JSON
}

type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Data      JSONData  `db:"data" json:"data,omitempty"`
	Read      bool      `db:"is_read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type VotingEvent struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	StartDate           string `json:"startDate"`
	EndDate             string `json:"endDate"`
	IsActive            bool   `json:"isActive"`
	VotingEnabled       bool   `json:"votingEnabled"`
	NotificationMessage string `json:"notificationMessage,omitempty"`
}

type VotingConfig struct {
	CurrentEvent *VotingEvent `db:"current_event" json:"currentEvent"`
	IsVotingOpen bool         `db:"is_voting_open" json:"isVotingOpen"`
	BlockMessage string       `db:"block_message" json:"blockMessage"`
	CreatedAt    *time.Time   `db:"created_at" json:"createdAt,omitempty"`
	UpdatedAt    *time.Time   `db:"updated_at" json:"updatedAt,omitempty"`
}

// DefaultVotingConfig is served while no configuration row exists.
func DefaultVotingConfig() VotingConfig {
	return VotingConfig{IsVotingOpen: false, BlockMessage: DefaultBlockMessage}
}

// Results types

type CandidateResult struct {
	CandidateID string  `json:"candidateId"`
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
}

type CategoryResult struct {
	CategoryID string            `json:"categoryId"`
	Name       string            `json:"name"`
	TotalVotes int               `json:"totalVotes"`
	Results    []CandidateResult `json:"results"`
}

type ResultsResponse struct {
	TotalVotes   int              `json:"totalVotes"`
	UniqueVoters int              `json:"uniqueVoters"`
	Categories   []CategoryResult `json:"categories"`
}

// Error response

type ErrorResponse struct {
	Error string `json:"error"`
}

// StringList is an ordered list of strings stored as a JSON array column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

// JSONData is an opaque JSON document stored in a text column.
type JSONData []byte

func (d JSONData) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *JSONData) UnmarshalJSON(b []byte) error {
	*d = append((*d)[:0], b...)
	return nil
}

func (d JSONData) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return string(d), nil
}

func (d *JSONData) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	*d = append((*d)[:0], b...)
	return nil
}

func (e *VotingEvent) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *VotingEvent) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, e)
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported JSON column type")
	}
}
