// Package config handles configuration loading for horoscope-desk.
//
// # Overview
//
// Configuration is read from a YAML file (or TOML when the path ends in
// .toml), expanded against the environment, overlaid with the deployment
// environment variables, and validated. A missing file is not an error: the
// desk runs on Default() plus environment.
//
// # Environment Variable Expansion
//
// File values can reference environment variables:
//
//	auth:
//	  session_secret: "${SESSION_SECRET}"
//
// Only the ${VAR_NAME} form is expanded. Unset variables become empty.
//
// # Environment Overrides
//
// These variables win over file values when set and non-empty:
//
//	DATABASE_TYPE              database.type
//	SQLITE_PATH                database.sqlite_path
//	MYSQL_HOST, MYSQL_PORT     database.mysql.host, database.mysql.port
//	MYSQL_USER, MYSQL_PASSWORD database.mysql.user, database.mysql.password
//	MYSQL_DATABASE             database.mysql.database
//	UPLOADS_DIR                uploads.dir
//	APP_URL                    server.base_url
//	NEXT_PUBLIC_APP_URL        server.base_url (wins over APP_URL)
//	WHATSAPP_ACCESS_TOKEN      whatsapp.access_token
//	WHATSAPP_PHONE_NUMBER_ID   whatsapp.phone_number_id
//	SESSION_SECRET             auth.session_secret
//	PORT                       server.http_addr becomes ":PORT"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	server:
//	  shutdown_timeout: "5s"
//	whatsapp:
//	  timeout: "30s"
//
// # Example
//
//	server:
//	  http_addr: ":3000"
//	  base_url: "https://desk.example.com"
//
//	database:
//	  type: "sqlite"
//	  sqlite_path: "/var/lib/horoscope-desk/horoscope.db"
//
//	uploads:
//	  dir: "/var/lib/horoscope-desk/uploads"
//
//	logging:
//	  level: "info"
//	  format: "json"
package config
