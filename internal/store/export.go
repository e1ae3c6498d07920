package store

import "github.com/pvidal/quizmark/internal/model"

// ExportAllSessions returns every stored session together with its
// evaluated results, for the export command.
func (s *Store) ExportAllSessions() ([]model.SessionExport, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return nil, err
	}

	exports := make([]model.SessionExport, 0, len(sessions))
	for _, sess := range sessions {
		results, err := s.GetResults(sess.ID)
		if err != nil {
			return nil, err
		}
		exports = append(exports, model.SessionExport{
			Session: sess,
			Results: results,
		})
	}
	return exports, nil
}
