package repository

// Repositories is a container for all repository instances.
type Repositories struct {
	Users       *UserRepository
	Clients     *ClientRepository
	Technicians *TechnicianRepository
	Equipment   *EquipmentRepository
	WorkOrders  *WorkOrderRepository
	Reports     *ReportRepository
	Remitos     *RemitoRepository
	EmailQueue  *EmailQueueRepository
}

// NewRepositories constructs the repository container over db, usually
// the application pool (server.DB.Pool).
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db),
		Clients:     NewClientRepository(db),
		Technicians: NewTechnicianRepository(db),
		Equipment:   NewEquipmentRepository(db),
		WorkOrders:  NewWorkOrderRepository(db),
		Reports:     NewReportRepository(db),
		Remitos:     NewRemitoRepository(db),
		EmailQueue:  NewEmailQueueRepository(db),
	}
}
