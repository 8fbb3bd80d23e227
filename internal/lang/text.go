package lang

// Text is the language of application package files that mention schema
// names but have no parser here: services.xml, query profiles, YQL files.
const Text = "text"

func init() {
	Languages[Text] = &Language{
		Name:       Text,
		Extensions: []string{".xml", ".json", ".yql", ".cfg", ".def", ".md", ".properties"},
	}
}
