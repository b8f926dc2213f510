package app

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ittebagilani/harada/app/grid"
	"github.com/ittebagilani/harada/app/models"
)

type goalRequest struct {
	Goal string `json:"goal"`
}

type pillarsRequest struct {
	Pillars []string `json:"pillars"`
	PlanID  string   `json:"planId"`
	Goal    string   `json:"goal"`
}

type switchPlanRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

type generatePillarsRequest struct {
	Save bool `json:"save"`
}

type toggleRequest struct {
	TaskID    string `json:"taskId" binding:"required"`
	Completed *bool  `json:"completed" binding:"required"`
}

// GetGoal returns the active plan's goal or null.
func (s *Server) GetGoal(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	goal, err := s.lifecycle.ActiveGoal(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

func (s *Server) SaveGoal(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, s.logger, invalidInput("invalid goal"))
		return
	}

	plan, err := s.lifecycle.SaveGoal(c.Request.Context(), user, req.Goal)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plan": plan})
}

// GetPillars returns pillar titles of the plan named by ?planId, or of the
// active plan.
func (s *Server) GetPillars(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	ctx := c.Request.Context()

	var plan models.Plan
	if planID := c.Query("planId"); planID != "" {
		plan, err = s.store.GetPlan(ctx, user.ID, planID)
	} else {
		plan, err = s.store.GetActivePlan(ctx, user.ID)
	}
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"pillars": []string{}})
		return
	}
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	pillars, err := s.store.ListPillars(ctx, user.ID, plan.ID)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	titles := make([]string, len(pillars))
	for i, p := range pillars {
		titles[i] = p.Title
	}
	c.JSON(http.StatusOK, gin.H{"pillars": titles, "planId": plan.ID})
}

func (s *Server) SavePillars(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var req pillarsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, s.logger, invalidInput("invalid pillars data"))
		return
	}

	plan, pillars, err := s.lifecycle.SavePillars(c.Request.Context(), user, req.Pillars, req.PlanID, req.Goal)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pillars": pillars, "planId": plan.ID})
}

func (s *Server) ListPlans(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	plans, err := s.lifecycle.ListPlans(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans, "isPremium": user.IsPremium})
}

func (s *Server) SwitchPlan(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var req switchPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, s.logger, invalidInput("planId is required"))
		return
	}

	plan, err := s.lifecycle.SwitchActivePlan(c.Request.Context(), user, req.PlanID)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plan": plan})
}

// GetTasks returns the active plan's pillars with their tasks.
func (s *Server) GetTasks(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	_, tasksData, err := s.lifecycle.ActivePlanTasks(c.Request.Context(), user)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"pillars": []models.Pillar{}, "tasksData": []models.PillarTasks{}})
		return
	}
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	pillars := make([]models.Pillar, len(tasksData))
	for i, pt := range tasksData {
		pillars[i] = models.Pillar{ID: pt.PillarID, Position: i, Title: pt.PillarTitle}
	}
	c.JSON(http.StatusOK, gin.H{"pillars": pillars, "tasksData": tasksData})
}

func (s *Server) GeneratePillars(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var req generatePillarsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, s.logger, invalidInput("invalid request"))
			return
		}
	}

	result, err := s.generator.GeneratePillars(c.Request.Context(), user, req.Save)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pillars": result.Pillars, "plan": result.Plan})
}

// GeneratePlan generates and stores the tasks of every pillar of the active plan.
func (s *Server) GeneratePlan(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	tasksData, err := s.generator.GenerateTasks(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasksData": tasksData})
}

func (s *Server) DailyTasks(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	tasks, err := s.daily.TodayTasks(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) ToggleTask(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, s.logger, invalidInput("taskId and completed are required"))
		return
	}

	task, err := s.daily.ToggleCompletion(c.Request.Context(), user, req.TaskID, *req.Completed)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (s *Server) Streak(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	streak, err := s.progress.Streak(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": streak})
}

func (s *Server) WeeklyCompletions(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	completions, err := s.progress.Weekly(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completions": completions})
}

func (s *Server) activeGrid(c *gin.Context) (grid.Grid, bool) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, s.logger, err)
		return grid.Grid{}, false
	}
	plan, tasksData, err := s.lifecycle.ActivePlanTasks(c.Request.Context(), user)
	if err != nil {
		respondError(c, s.logger, err)
		return grid.Grid{}, false
	}
	if len(tasksData) != grid.PillarCount {
		respondError(c, s.logger, notFound("plan has no complete set of pillars"))
		return grid.Grid{}, false
	}

	pillars := make([]grid.Pillar, len(tasksData))
	for i, pt := range tasksData {
		tasks := make([]string, len(pt.Tasks))
		for j, t := range pt.Tasks {
			tasks[j] = t.Content
		}
		pillars[i] = grid.Pillar{Title: pt.PillarTitle, Tasks: tasks}
	}

	g, err := grid.Build(plan.Goal, pillars)
	if err != nil {
		respondError(c, s.logger, err)
		return grid.Grid{}, false
	}
	return g, true
}

// Grid returns the active plan laid out on the 9x9 chart.
func (s *Server) Grid(c *gin.Context) {
	g, ok := s.activeGrid(c)
	if !ok {
		return
	}
	cells := make([]grid.Cell, 0, grid.Size*grid.Size)
	for r := range g.Cells {
		cells = append(cells, g.Cells[r][:]...)
	}
	c.JSON(http.StatusOK, gin.H{"rows": g.Rows(), "cells": cells})
}

// GridExport downloads the chart as CSV.
func (s *Server) GridExport(c *gin.Context) {
	g, ok := s.activeGrid(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := g.WriteCSV(&buf); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="grid64.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
