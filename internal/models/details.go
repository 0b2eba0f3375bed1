package models

// ProductionCompany is a studio or network credit
type ProductionCompany struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	LogoPath      *string `json:"logo_path"`
	OriginCountry string  `json:"origin_country"`
}

// MovieDetails is the movie detail payload with credits, videos, similar titles and
// external ids appended
type MovieDetails struct {
	MediaItem
	Genres              []Genre             `json:"genres"`
	Runtime             int                 `json:"runtime"`
	Tagline             string              `json:"tagline"`
	Status              string              `json:"status"`
	Budget              int64               `json:"budget"`
	Revenue             int64               `json:"revenue"`
	Homepage            string              `json:"homepage"`
	IMDbID              *string             `json:"imdb_id"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	Credits             *Credits            `json:"credits,omitempty"`
	Videos              *Videos             `json:"videos,omitempty"`
	Similar             *Page[MediaItem]    `json:"similar,omitempty"`
	ExternalIDs         *ExternalIDs        `json:"external_ids,omitempty"`
}

// Season is a TV season summary
type Season struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	SeasonNumber int     `json:"season_number"`
	EpisodeCount int     `json:"episode_count"`
	AirDate      string  `json:"air_date"`
	PosterPath   *string `json:"poster_path"`
	Overview     string  `json:"overview"`
}

// Creator is a TV show creator
type Creator struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	ProfilePath *string `json:"profile_path"`
}

// TVShowDetails is the TV detail payload with the same appends as MovieDetails
type TVShowDetails struct {
	MediaItem
	Genres           []Genre             `json:"genres"`
	NumberOfSeasons  int                 `json:"number_of_seasons"`
	NumberOfEpisodes int                 `json:"number_of_episodes"`
	EpisodeRunTime   []int               `json:"episode_run_time"`
	Status           string              `json:"status"`
	Tagline          string              `json:"tagline"`
	Homepage         string              `json:"homepage"`
	InProduction     bool                `json:"in_production"`
	LastAirDate      string              `json:"last_air_date"`
	Seasons          []Season            `json:"seasons"`
	Networks         []ProductionCompany `json:"networks"`
	CreatedBy        []Creator           `json:"created_by"`
	Credits          *Credits            `json:"credits,omitempty"`
	Videos           *Videos             `json:"videos,omitempty"`
	Similar          *Page[MediaItem]    `json:"similar,omitempty"`
	ExternalIDs      *ExternalIDs        `json:"external_ids,omitempty"`
}

// Runtime returns the typical episode runtime in minutes, or 0
func (d *TVShowDetails) Runtime() int {
	if len(d.EpisodeRunTime) == 0 {
		return 0
	}
	return d.EpisodeRunTime[0]
}

// IMDb returns the IMDb id linking the movie to the ratings service
func (d *MovieDetails) IMDb() string {
	if id := d.ExternalIDs.IMDb(); id != "" {
		return id
	}
	if d.IMDbID != nil {
		return *d.IMDbID
	}
	return ""
}

// IMDb returns the IMDb id linking the show to the ratings service
func (d *TVShowDetails) IMDb() string {
	return d.ExternalIDs.IMDb()
}

// OMDBRating is one third-party score reported by OMDb
type OMDBRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// OMDBTitle is the supplementary ratings payload
type OMDBTitle struct {
	Title      string       `json:"Title"`
	Year       string       `json:"Year"`
	Rated      string       `json:"Rated"`
	Released   string       `json:"Released"`
	Runtime    string       `json:"Runtime"`
	Genre      string       `json:"Genre"`
	Director   string       `json:"Director"`
	Writer     string       `json:"Writer"`
	Actors     string       `json:"Actors"`
	Plot       string       `json:"Plot"`
	Language   string       `json:"Language"`
	Country    string       `json:"Country"`
	Awards     string       `json:"Awards"`
	Poster     string       `json:"Poster"`
	Ratings    []OMDBRating `json:"Ratings"`
	Metascore  string       `json:"Metascore"`
	IMDbRating string       `json:"imdbRating"`
	IMDbVotes  string       `json:"imdbVotes"`
	IMDbID     string       `json:"imdbID"`
	Type       string       `json:"Type"`
	BoxOffice  string       `json:"BoxOffice,omitempty"`
	Response   string       `json:"Response"`
}

// Rating returns the value reported by the named source
func (o *OMDBTitle) Rating(source string) (string, bool) {
	for _, r := range o.Ratings {
		if r.Source == source {
			return r.Value, true
		}
	}
	return "", false
}
