package types

// Config represents a single account configuration
type Config struct {
	// Meta information for the configuration
	Meta struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description,omitempty"`
		Enabled     bool   `yaml:"enabled"`
		Template    string `yaml:"template,omitempty"` // Name of the template to use
	} `yaml:"meta"`

	Email struct {
		// Provider presets the IMAP server settings: gmail, outlook or custom
		Provider       string `yaml:"provider"`
		DefaultTimeout int    `yaml:"default_timeout"`
		Protocols      struct {
			IMAP struct {
				Enabled     bool   `yaml:"enabled"`
				Server      string `yaml:"server"`
				DefaultPort int    `yaml:"default_port"`
				Username    string `yaml:"username"`
				Password    string `yaml:"password"`
				Folder      string `yaml:"folder"`
				BatchSize   int    `yaml:"batch_size"`
				Security    struct {
					TLS struct {
						Enabled    bool `yaml:"enabled"`
						VerifyCert bool `yaml:"verify_cert"`
					} `yaml:"tls"`
					OAuth2 struct {
						Enabled          bool   `yaml:"enabled"`
						Provider         string `yaml:"provider"` // google or microsoft
						ClientID         string `yaml:"client_id"`
						ClientSecret     string `yaml:"client_secret"`
						TokenStoragePath string `yaml:"token_storage_path"`
					} `yaml:"oauth2"`
				} `yaml:"security"`
			} `yaml:"imap"`
			POP3 struct {
				Enabled     bool   `yaml:"enabled"`
				Server      string `yaml:"server"`
				DefaultPort int    `yaml:"default_port"`
				Username    string `yaml:"username"`
				Password    string `yaml:"password"`
				Security    struct {
					TLS struct {
						Enabled    bool `yaml:"enabled"`
						VerifyCert bool `yaml:"verify_cert"`
					} `yaml:"tls"`
				} `yaml:"security"`
			} `yaml:"pop3"`
		} `yaml:"protocols"`

		// Search narrows which messages are considered for download
		Search struct {
			Sender  string `yaml:"sender,omitempty"`
			Subject string `yaml:"subject,omitempty"`
			Since   string `yaml:"since,omitempty"` // YYYY-MM-DD
			Until   string `yaml:"until,omitempty"` // YYYY-MM-DD, exclusive
		} `yaml:"search"`

		Attachments struct {
			StoragePath string `yaml:"storage_path"`
			MaxSize     int64  `yaml:"max_size"`
			// FileTypes are category names (pdf, images, documents, ...)
			FileTypes []string `yaml:"file_types"`
			// AllowedTypes are raw extensions, merged with FileTypes
			AllowedTypes []string `yaml:"allowed_types"`
		} `yaml:"attachments"`

		Rename struct {
			Enabled bool `yaml:"enabled"`
			// TemplateKey selects a predefined pattern; Pattern overrides it
			TemplateKey      string `yaml:"template_key,omitempty"`
			Pattern          string `yaml:"pattern,omitempty"`
			ReplaceSpaces    bool   `yaml:"replace_spaces"`
			Lowercase        bool   `yaml:"lowercase"`
			SpaceReplacement string `yaml:"space_replacement"`
		} `yaml:"rename"`

		Download struct {
			Parallel   bool `yaml:"parallel"`
			MaxWorkers int  `yaml:"max_workers"`
		} `yaml:"download"`

		Tracking struct {
			Enabled       bool   `yaml:"enabled"`
			StoragePath   string `yaml:"storage_path"`
			RetentionDays int    `yaml:"retention_days"`
		} `yaml:"tracking"`

		ErrorLogging struct {
			Enabled       bool   `yaml:"enabled"`
			StorageType   string `yaml:"storage_type"`
			StoragePath   string `yaml:"storage_path"`
			RetentionDays int    `yaml:"retention_days"`
		} `yaml:"error_logging"`
	} `yaml:"email"`

	Storage struct {
		Type            string `yaml:"type"` // file or gdrive
		CredentialsFile string `yaml:"credentials_file,omitempty"`
		ParentFolderID  string `yaml:"parent_folder_id,omitempty"`
	} `yaml:"storage"`

	Logging struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"` // text, json or dev
		IncludeCaller bool   `yaml:"include_caller"`
	} `yaml:"logging"`

	Scheduling struct {
		Enabled         bool   `yaml:"enabled"`
		FrequencyEvery  string `yaml:"frequency_every"` // minute, hour, day
		FrequencyAmount int    `yaml:"frequency_amount"`
		StartNow        bool   `yaml:"start_now"`
	} `yaml:"scheduling"`
}
