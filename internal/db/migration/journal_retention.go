package migration

// JournalKeep is how many journal rows survive a startup.
const JournalKeep = 20000

func journalRetention(m *Migration) error {
	res := m.DB.Exec(
		`DELETE FROM journal WHERE id NOT IN (SELECT id FROM journal ORDER BY id DESC LIMIT ?)`,
		JournalKeep,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		m.Log("pruned journal rows: ", res.RowsAffected)
	}
	return nil
}
