package main

// General API documentation for swaggo. Run `make swagger-gen` to regenerate
// the docs package.
//
// @title           gatewayd API
// @version         1.0
// @description     Supervisor and admin API for the nanobot messaging gateway.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
//
// @securityDefinitions.basic  BasicAuth
