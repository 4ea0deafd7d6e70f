package content

// PracticeArea is a static service line shown on the site.
type PracticeArea struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
}

// DefaultPracticeAreas is the built-in catalog. A seed file may replace it
// per Service.
var DefaultPracticeAreas = []PracticeArea{
	{ID: "corp", Title: "Corporate Law", Description: "Expert guidance on mergers, acquisitions, and corporate governance for enterprises.", Icon: "Briefcase"},
	{ID: "crim", Title: "Criminal Defense", Description: "Strategic defense representation in high-profile criminal litigation cases.", Icon: "Gavel"},
	{ID: "civ", Title: "Civil Litigation", Description: "Resolving disputes across a broad spectrum of commercial and private legal matters.", Icon: "Scale"},
	{ID: "ip", Title: "Intellectual Property", Description: "Securing and defending your innovations and creative assets globally.", Icon: "ShieldCheck"},
	{ID: "fam", Title: "Family Law", Description: "Compassionate legal support for complex family matters and domestic relations.", Icon: "Users"},
	{ID: "est", Title: "Estate Planning", Description: "Wealth preservation and management for future generations.", Icon: "FileText"},
}

// FindPracticeArea returns the catalog entry with id, or nil.
func FindPracticeArea(areas []PracticeArea, id string) *PracticeArea {
	for i := range areas {
		if areas[i].ID == id {
			return &areas[i]
		}
	}
	return nil
}

// PracticeAreas returns the catalog in use.
func (s *Service) PracticeAreas() []PracticeArea {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.practice
}
