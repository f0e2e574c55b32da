package app

type (
	NotificationSettings struct {
		Push     bool `json:"push"`
		Email    bool `json:"email"`
		Mentions bool `json:"mentions"`
	}

	AppearanceSettings struct {
		Theme        string `json:"theme"`
		FontSize     string `json:"font_size"`
		ReduceMotion bool   `json:"reduce_motion"`
	}

	Settings struct {
		Notifications NotificationSettings `json:"notifications"`
		Appearance    AppearanceSettings   `json:"appearance"`
	}
)

var (
	themes    = []string{"Light", "Dark", "System"}
	fontSizes = []string{"Small", "Medium", "Large"}
)

// DefaultSettings is what a user sees before saving anything.
func DefaultSettings() Settings {
	return Settings{
		Notifications: NotificationSettings{Push: true, Email: false, Mentions: true},
		Appearance:    AppearanceSettings{Theme: "Light", FontSize: "Medium"},
	}
}

func (s Settings) Validate() error {
	if !checkIn(s.Appearance.Theme, themes) {
		return &ValidationError{Field: "theme", Message: "Theme must be one of Light, Dark, System."}
	}
	if !checkIn(s.Appearance.FontSize, fontSizes) {
		return &ValidationError{Field: "font_size", Message: "Font size must be one of Small, Medium, Large."}
	}
	return nil
}
