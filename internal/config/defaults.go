package config

import "path/filepath"

func Defaults() *Config {
	dataDir := DefaultConfigDir()
	return &Config{
		General: GeneralConfig{
			DataDir:               dataDir,
			LogLevel:              "info",
			BotName:               "Ayaka",
			MaxConcurrentMessages: 5,
		},
		Telegram: TelegramConfig{
			Enabled:   false,
			Token:     "${TELEGRAM_BOT_TOKEN}",
			ParseMode: "", // plain text; replies are markdown-sanitized
		},
		Gemini: GeminiConfig{
			APIKey:          "${GEMINI_API_KEY}",
			Model:           "gemini-2.5-flash",
			Temperature:     0.7,
			MaxOutputTokens: 1000,
		},
		Storage: StorageConfig{
			DBPath:        filepath.Join(dataDir, "ayaka.db"),
			BackupDir:     filepath.Join(dataDir, "backups"),
			RetentionDays: 30,
		},
		Maintenance: MaintenanceConfig{
			Enabled:        true,
			BackupSchedule: "0 4 * * *", // daily at 04:00
			PurgeSchedule:  "30 4 * * *",
		},
	}
}
