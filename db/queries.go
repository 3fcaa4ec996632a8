// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

// Named statements shared by the handlers and the seeder. sqlx compiles
// the :name parameters to the placeholder style of the active driver.
const (
	InsertUserSQL = `
		INSERT INTO users (id, name, email, phone, password_hash, role, domain, city, profile_photo, created_at)
		VALUES (:id, :name, :email, :phone, :password_hash, :role, :domain, :city, :profile_photo, :created_at)
	`

	InsertCategorySQL = `
		INSERT INTO categories (id, name, subtitle, special, is_leadership_prize, pre_assigned_winner, created_at)
		VALUES (:id, :name, :subtitle, :special, :is_leadership_prize, :pre_assigned_winner, :created_at)
	`

	InsertCandidateSQL = `
		INSERT INTO candidates (id, category_id, name, alias, image, bio, achievements,
		                        song_count, candidate_song, audio_file, created_at)
		VALUES (:id, :category_id, :name, :alias, :image, :bio, :achievements,
		        :song_count, :candidate_song, :audio_file, :created_at)
	`

	// Zero rows affected means the (user_id, category_id) pair already voted.
	InsertVoteIfAbsentSQL = `
		INSERT INTO votes (id, user_id, category_id, candidate_id, candidate_name, voted_at, ip_hash, user_agent)
		VALUES (:id, :user_id, :category_id, :candidate_id, :candidate_name, :voted_at, :ip_hash, :user_agent)
		ON CONFLICT (user_id, category_id) DO NOTHING
	`

	InsertNotificationSQL = `
		INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
		VALUES (:id, :user_id, :type, :title, :message, :data, :is_read, :created_at)
	`

	UpsertVotingConfigSQL = `
		INSERT INTO voting_config (id, current_event, is_voting_open, block_message, created_at, updated_at)
		VALUES (:id, :current_event, :is_voting_open, :block_message, :updated_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			current_event = excluded.current_event,
			is_voting_open = excluded.is_voting_open,
			block_message = excluded.block_message,
			updated_at = excluded.updated_at
	`
)

// Column lists for SELECTs into the models structs.
const (
	UserColumns         = "id, name, email, phone, password_hash, role, domain, city, profile_photo, created_at"
	CategoryColumns     = "id, name, subtitle, special, is_leadership_prize, pre_assigned_winner, created_at"
	CandidateColumns    = "id, category_id, name, alias, image, bio, achievements, song_count, candidate_song, audio_file, created_at"
	VoteColumns         = "id, user_id, category_id, candidate_id, candidate_name, voted_at, ip_hash, user_agent"
	NotificationColumns = "id, user_id, type, title, message, data, is_read, created_at"
)
