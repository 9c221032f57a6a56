// Package config loads filemux project configuration.
//
// The configuration lives in filemux.json, filemux.yaml or filemux.yml at
// the project root. Every field is optional; defaults are applied after
// loading. YAML files may reference environment variables.
//
// # Configuration File Structure
//
//	api: ./api
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	  versionHeader: X-Api-Version
//	dev:
//	  watch: true
//	  ignore: ["*.test.ts"]
//	  debounce: 50ms
//	metrics:
//	  enabled: true
//	tracing:
//	  enabled: true
//	manifest:
//	  s3:
//	    bucket: ${MANIFEST_BUCKET}
//	    key: routes/manifest.json
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	fmt.Println("API:", cfg.APIPath())
package config
