package prompt

import "github.com/plantflow/plantflow/internal/diagram"

// kindRules returns the syntax rule block and worked example for a diagram
// kind. The blocks are deliberately prescriptive: models follow a concrete
// example far more reliably than a grammar description.
func kindRules(kind diagram.Kind) string {
	switch kind {
	case diagram.KindComponent:
		return `Component diagram rules:
- Declare components in square brackets: [Web Server]
- Declare interfaces with parentheses or (): () "REST API"
- Connect with --> arrows, a space on each side: [A] --> [B]

Example:
@startuml
[Web Client] --> [API Gateway]
[API Gateway] --> [Order Service]
[Order Service] --> [Database]
@enduml`

	case diagram.KindDeployment:
		return `Deployment diagram rules:
- Declare execution environments with node: node "App Server" { ... }
- Use artifact and database keywords for deployed pieces
- Connect nodes with --> arrows

Example:
@startuml
node "Load Balancer" {
  [nginx]
}
node "App Server" {
  [API]
}
node "DB Server" {
  database "orders"
}
[nginx] --> [API]
[API] --> [orders]
@enduml`

	case diagram.KindClass:
		return `Class diagram rules:
- Declare classes with a braced block: class Order { +id: int }
- Relations: --|> extends, --> association, o-- aggregation, *-- composition
- Every opening brace needs a closing brace

Example:
@startuml
class Customer {
  +id: int
  +name: string
}
class Order {
  +id: int
  +total: decimal
}
Customer "1" --> "many" Order
@enduml`

	case diagram.KindSequence:
		return `Sequence diagram rules:
- Declare participants first: participant "Web Server" as WS
- Messages: A -> B: request, dashed returns: B --> A: response
- Quote display names containing spaces

Example:
@startuml
participant "Browser" as B
participant "API" as A
B -> A: GET /orders
A --> B: 200 OK
@enduml`

	case diagram.KindUsecase:
		return `Use-case diagram rules:
- Declare actors: actor Customer
- Declare use cases in parentheses: (Place Order)
- Connect actors to use cases with --> arrows

Example:
@startuml
actor Customer
actor Admin
Customer --> (Place Order)
Customer --> (Track Order)
Admin --> (Manage Inventory)
@enduml`

	case diagram.KindActivity:
		return `Activity diagram rules:
- Begin the flow with start and finish with stop
- Activities are :Do something; lines (colon prefix, semicolon suffix)
- Branches: if (condition?) then (yes) ... else (no) ... endif

Example:
@startuml
start
:Receive order;
if (In stock?) then (yes)
  :Ship order;
else (no)
  :Backorder;
endif
stop
@enduml`

	case diagram.KindState:
		return `State diagram rules:
- [*] is the initial and final pseudo-state
- Transitions: StateA --> StateB : event
- Declare composite states with state Name { ... }

Example:
@startuml
[*] --> Pending
Pending --> Paid : payment received
Paid --> Shipped : dispatched
Shipped --> [*]
@enduml`

	default:
		return ""
	}
}
