// Package main Crewboard Server API
//
//	@title						Crewboard Server API
//	@version					1.0
//	@description				Team, project and task collaboration backend
//
//	@host						localhost:8080
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Identity provider session token. Format: "Bearer {token}"
//
//	@securityDefinitions.apikey	AdminToken
//	@in							header
//	@name						Authorization
//	@description				Operator token for /internal routes. Format: "Bearer {token}"
//
//	@tag.name					Teams
//	@tag.description			Teams, memberships and invitations
//
//	@tag.name					Projects
//	@tag.description			Projects within a team
//
//	@tag.name					Tasks
//	@tag.description			Tasks within a project
//
//	@tag.name					Operations
//	@tag.description			Operator endpoints
package main
