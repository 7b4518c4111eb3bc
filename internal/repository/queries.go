package repository

// jobColumns maps the persisted job row onto domain.Job. The column renames
// (pumpist_id, expected_volume, pipe_length, dispatcher_notes, pumpist_notes)
// happen here and nowhere else.
const jobColumns = `
	j.id::text AS id,
	j.organization_id::text AS organization_id,
	to_char(j.job_date, 'YYYY-MM-DD') AS job_date,
	to_char(j.start_time, 'HH24:MI') AS start_time,
	to_char(j.end_time, 'HH24:MI') AS end_time,
	j.travel_time_minutes,
	j.pumpist_id::text AS driver_id,
	j.pump_type_id::text AS pump_type_id,
	j.client_id::text AS client_id,
	j.price_list_id::text AS price_list_id,
	j.status,
	j.address_street,
	j.address_city,
	j.address_postal_code,
	j.expected_volume::float8 AS volume_m3,
	j.pipe_length::float8 AS pipe_length_m,
	j.dispatcher_notes AS notes,
	j.pumpist_notes AS driver_notes,
	j.proprietary_concrete,
	c.name AS client_name,
	c.phone AS client_phone,
	u.first_name AS driver_first_name,
	u.last_name AS driver_last_name,
	pt.name AS pump_type_name,
	j.created_at,
	j.updated_at`

const jobJoins = `
	FROM jobs j
	LEFT JOIN clients c ON c.id = j.client_id
	LEFT JOIN users u ON u.id = j.pumpist_id
	LEFT JOIN pump_types pt ON pt.id = j.pump_type_id`

const queryJobsForDate = `SELECT` + jobColumns + jobJoins + `
	WHERE j.organization_id = $1 AND j.job_date = $2
	ORDER BY j.start_time, j.id`

const queryJobByID = `SELECT` + jobColumns + jobJoins + `
	WHERE j.organization_id = $1 AND j.id = $2`

const queryInsertJob = `
	INSERT INTO jobs (
		id, organization_id, job_date, start_time, end_time, travel_time_minutes,
		pumpist_id, pump_type_id, client_id, price_list_id, status,
		address_street, address_city, address_postal_code,
		expected_volume, pipe_length, dispatcher_notes, pumpist_notes, proprietary_concrete
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

const queryDeleteJob = `DELETE FROM jobs WHERE organization_id = $1 AND id = $2`

const queryActiveDrivers = `
	SELECT id::text AS id, first_name, last_name, phone, is_active
	FROM users
	WHERE organization_id = $1 AND is_active AND $2 = ANY(roles)
	ORDER BY first_name, last_name`

const queryUserByID = `
	SELECT id::text AS id, organization_id::text AS organization_id, first_name, last_name,
	       email, phone, array_to_string(roles, ',') AS roles, is_active, created_at, updated_at
	FROM users
	WHERE organization_id = $1 AND id = $2`
