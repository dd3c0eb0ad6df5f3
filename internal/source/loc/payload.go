package loc

import (
	"encoding/json"
	"strings"
)

// stringList tolerates fields the archive serves as either a string or a
// list of strings depending on the record.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*s = stringList{single}
		} else {
			*s = nil
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = stringList(many)
	return nil
}

func (s stringList) first() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// collectionPage is one page of the paginated collection API response.
type collectionPage struct {
	Results    []collectionItem `json:"results"`
	Pagination struct {
		Next string `json:"next"`
	} `json:"pagination"`
}

// collectionItem is one record in a collection listing; both title-level
// and issue-level records share this shape.
type collectionItem struct {
	Date          string     `json:"date"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	ID            string     `json:"id"`
	LCCNs         stringList `json:"number_lccn"`
	LocationCity  stringList `json:"location_city"`
	LocationState stringList `json:"location_state"`
}

// locator returns the item's address, preferring the url field.
func (i collectionItem) locator() string {
	if i.URL != "" {
		return i.URL
	}
	return i.ID
}

// issuePayload is the fo=json body of an issue item.
type issuePayload struct {
	Resources []issueResource `json:"resources"`
}

type issueResource struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

func (r issueResource) locator() string {
	if r.URL != "" {
		return r.URL
	}
	return r.ID
}

// pagePayload is the fo=json body of a page resource.
type pagePayload struct {
	Resource struct {
		PDF          string `json:"pdf"`
		FulltextFile string `json:"fulltext_file"`
	} `json:"resource"`
	FulltextService string     `json:"fulltext_service"`
	Files           []pageFile `json:"files"`
}

type pageFile struct {
	Mimetype string `json:"mimetype"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// editionFromLocator parses the /ed-N/ segment out of an item URL,
// defaulting to the first edition.
func editionFromLocator(locator string) int {
	idx := strings.Index(locator, "/ed-")
	if idx < 0 {
		return 1
	}
	rest := strings.TrimSuffix(locator[idx+len("/ed-"):], "/")
	if cut := strings.IndexByte(rest, '/'); cut >= 0 {
		rest = rest[:cut]
	}
	edition := 0
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 1
		}
		edition = edition*10 + int(r-'0')
	}
	if edition < 1 {
		return 1
	}
	return edition
}
