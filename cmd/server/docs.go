package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Lavpop BI Sync API
// @version         0.1.0
// @description     Periodic sync of Google Business Profile, WhatsApp analytics and CRM subscribers.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
